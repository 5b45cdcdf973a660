package chesspresenter

import (
	"strings"

	"github.com/park285/cheese-chess/pkg/chessdto"
)

// Presenter delivers formatted screens and board images without coupling to the command layer.
type Presenter struct {
	formatter   *Formatter
	sendMessage func(message string) error
	sendImage   func(png []byte) error
}

func NewPresenter(formatter *Formatter, sendMessage func(message string) error, sendImage func(png []byte) error) *Presenter {
	return &Presenter{
		formatter:   formatter,
		sendMessage: sendMessage,
		sendImage:   sendImage,
	}
}

// Board sends message, then the screen for view, then the image when there is one.
func (p *Presenter) Board(message string, view *chessdto.View, image []byte) error {
	if p == nil {
		return nil
	}

	if text := strings.TrimSpace(message); text != "" && p.sendMessage != nil {
		if err := p.sendMessage(message); err != nil {
			return err
		}
	}

	if view != nil && p.sendMessage != nil && p.formatter != nil {
		if err := p.sendMessage(p.formatter.Screen(view)); err != nil {
			return err
		}
	}

	if len(image) > 0 && p.sendImage != nil {
		if err := p.sendImage(image); err != nil {
			return err
		}
	}
	return nil
}

func (p *Presenter) Message(message string) error {
	if p == nil || p.sendMessage == nil || strings.TrimSpace(message) == "" {
		return nil
	}
	return p.sendMessage(message)
}

func (p *Presenter) Error(err *chessdto.DomainError) error {
	if p == nil || err == nil || p.formatter == nil {
		return nil
	}
	return p.Message(p.formatter.Error(err))
}
