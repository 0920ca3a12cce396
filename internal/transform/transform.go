// Package transform invokes the external image-transform executable.
package transform

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
)

// DefaultBlurRadius is the fixed intensity passed to the blur operation.
const DefaultBlurRadius = "0x8"

// Executor applies a transform to the file at src, producing dst.
type Executor interface {
	Apply(ctx context.Context, src, dst string) error
}

// Blur runs ImageMagick's convert with a fixed blur argument. The call
// blocks until the process exits; a non-zero exit or a missing output file
// is a transform failure.
type Blur struct {
	// ConvertPath is the convert binary to invoke; defaults to "convert"
	// resolved via PATH.
	ConvertPath string
	// Radius is the blur intensity; defaults to DefaultBlurRadius.
	Radius string
}

// Apply blurs src into dst.
func (b *Blur) Apply(ctx context.Context, src, dst string) error {
	convert := b.ConvertPath
	if convert == "" {
		convert = "convert"
	}
	radius := b.Radius
	if radius == "" {
		radius = DefaultBlurRadius
	}

	cmd := exec.CommandContext(ctx, convert, src, "-blur", radius, dst)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("convert %s: %w: %s", src, err, bytes.TrimSpace(output))
	}

	// A zero exit without an output file still counts as failure.
	if _, err := os.Stat(dst); err != nil {
		return fmt.Errorf("convert produced no output at %s: %w", dst, err)
	}

	return nil
}
