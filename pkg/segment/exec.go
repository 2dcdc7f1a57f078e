package segment

import (
	"bufio"
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Exit statuses an inference command uses to report known failures.
const (
	ExitDeviceUnavailable = 3
	ExitModelMismatch     = 4
)

// ExecInferer runs an external inference command per weight file:
//
//	command [args...] --weights W --device cuda|cpu --classes C
//
// For every slice it writes width and height as little endian uint32
// followed by width*height little endian float32 values, and reads back
// classes*height*width bytes where non-zero means foreground.
type ExecInferer struct {
	Command string
	Args    []string
	Env     []string
}

func (e ExecInferer) Load(ctx context.Context, weights string, dev Device, classes int) (Predictor, error) {
	if e.Command == "" {
		return nil, errors.New("no inference command configured")
	}
	args := append(append([]string{}, e.Args...),
		"--weights", weights, "--device", dev.String(), "--classes", strconv.Itoa(classes))
	cmd := exec.CommandContext(ctx, e.Command, args...)
	cmd.Env = e.Env
	stderr := &bytes.Buffer{}
	cmd.Stderr = stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", e.Command, err)
	}
	return &execPredictor{
		cmd:     cmd,
		stdin:   stdin,
		stdout:  bufio.NewReader(stdout),
		stderr:  stderr,
		classes: classes,
	}, nil
}

type execPredictor struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	stdout  *bufio.Reader
	stderr  *bytes.Buffer
	classes int
	done    bool
}

func (p *execPredictor) Predict(ctx context.Context, img []float32, w, h int) ([]bool, error) {
	if p.done {
		return nil, errors.New("predictor closed")
	}
	if len(img) != w*h {
		return nil, fmt.Errorf("slice has %d values, want %d", len(img), w*h)
	}
	buf := make([]byte, 8+4*len(img))
	binary.LittleEndian.PutUint32(buf[0:], uint32(w))
	binary.LittleEndian.PutUint32(buf[4:], uint32(h))
	for i, v := range img {
		binary.LittleEndian.PutUint32(buf[8+4*i:], math.Float32bits(v))
	}
	if _, err := p.stdin.Write(buf); err != nil {
		return nil, p.fail(err)
	}
	out := make([]byte, p.classes*w*h)
	if _, err := io.ReadFull(p.stdout, out); err != nil {
		return nil, p.fail(err)
	}
	pred := make([]bool, len(out))
	for i, b := range out {
		pred[i] = b != 0
	}
	return pred, nil
}

// fail reaps the process and maps its exit status onto the package errors.
func (p *execPredictor) fail(cause error) error {
	if p.done {
		return cause
	}
	p.done = true
	p.stdin.Close()
	err := p.cmd.Wait()
	msg := strings.TrimSpace(p.stderr.String())
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		switch exitErr.ExitCode() {
		case ExitDeviceUnavailable:
			return fmt.Errorf("%w: %s", ErrDeviceUnavailable, msg)
		case ExitModelMismatch:
			return fmt.Errorf("%w: %s", ErrModelMismatch, msg)
		}
		return fmt.Errorf("inference command failed (%w): %s", err, msg)
	}
	return fmt.Errorf("inference command: %w", cause)
}

func (p *execPredictor) Close() error {
	if p.done {
		return nil
	}
	p.done = true
	p.stdin.Close()
	return p.cmd.Wait()
}
