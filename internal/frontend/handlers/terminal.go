package handlers

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Terminal is a line-oriented client connection. *telnet.Conn satisfies it.
type Terminal interface {
	ReadLine() (string, error)
	WriteLine(text string) error
	WritePrompt(prompt string) error
}

// Console is a Terminal over a local reader and writer, such as stdin and stdout.
type Console struct {
	in  *bufio.Reader
	out io.Writer
	mu  sync.Mutex
}

// NewConsole wraps in and out as a Terminal.
//
// Precondition: in and out must be non-nil.
func NewConsole(in io.Reader, out io.Writer) *Console {
	return &Console{in: bufio.NewReader(in), out: out}
}

// ReadLine returns the next line without its line terminator. A final line
// with no terminator is returned before io.EOF.
func (c *Console) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if errors.Is(err, io.EOF) && line != "" {
		err = nil
	}
	return strings.TrimRight(line, "\r\n"), err
}

// WriteLine writes text followed by a newline.
func (c *Console) WriteLine(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintln(c.out, text)
	return err
}

// WritePrompt writes prompt without a newline.
func (c *Console) WritePrompt(prompt string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprint(c.out, prompt)
	return err
}
