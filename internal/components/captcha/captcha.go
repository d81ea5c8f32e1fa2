// Package captcha holds the boundary to whatever turns a login captcha image into text.
package captcha

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrEmptyAnswer = errors.New("captcha: empty answer")

// Recognizer turns the bytes of a captcha image into the text it shows.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// RecognizerFunc adapts a plain function into a Recognizer.
type RecognizerFunc func(ctx context.Context, image []byte) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// PromptRecognizer saves the captcha image into Dir and asks a human for the answer.
type PromptRecognizer struct {
	Dir string
	In  io.Reader
	Out io.Writer
}

func (p PromptRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	err := os.MkdirAll(p.Dir, 0777)
	if err != nil {
		return "", err
	}
	path := filepath.Join(p.Dir, "captcha.png")
	err = os.WriteFile(path, image, 0600)
	if err != nil {
		return "", err
	}
	fmt.Fprintf(p.Out, "captcha saved to %s, enter the code: ", path)

	answer := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(p.In).ReadString('\n')
		answer <- line
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line := <-answer:
		code := strings.ToUpper(strings.TrimSpace(line))
		if code == "" {
			return "", ErrEmptyAnswer
		}
		return code, nil
	}
}
