// Package browserwin implements the overlay window abstractions on top of
// Chrome windows driven over the DevTools protocol. Source windows run in a
// headless browser and stream captured frames; preview windows are headful
// app windows whose dragged bounds can be read back.
package browserwin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/neferent/streamlabs-obs/overlay"
)

// DefaultFrameInterval throttles source-window captures to 1 fps to bound
// compositor load.
const DefaultFrameInterval = time.Second

// Factory creates browser-backed windows.
type Factory struct {
	parent        context.Context
	frameInterval time.Duration
}

// NewFactory creates a window factory. All browsers it launches are children
// of the parent context; cancelling it tears every window down.
func NewFactory(parent context.Context, frameInterval time.Duration) *Factory {
	if frameInterval <= 0 {
		frameInterval = DefaultFrameInterval
	}
	return &Factory{parent: parent, frameInterval: frameInterval}
}

// NewSourceWindow launches a headless browser sized to the window, with the
// theme background applied so partially transparent content composes onto it.
func (f *Factory) NewSourceWindow(opts overlay.SourceOptions) (overlay.SourceWindow, error) {
	return newSourceWindow(f.parent, opts, f.frameInterval)
}

// NewPreviewWindow launches a headful frameless app window used only for
// drag-to-place.
func (f *Factory) NewPreviewWindow(opts overlay.PreviewOptions) (overlay.PreviewWindow, error) {
	return newPreviewWindow(f.parent, opts)
}

// parseColor converts a #rrggbb string to a DevTools RGBA value.
func parseColor(hex string) (*cdp.RGBA, error) {
	if len(hex) != 7 || hex[0] != '#' {
		return nil, fmt.Errorf("browserwin: malformed color %q", hex)
	}
	r, err := strconv.ParseInt(hex[1:3], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("browserwin: malformed color %q", hex)
	}
	g, err := strconv.ParseInt(hex[3:5], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("browserwin: malformed color %q", hex)
	}
	b, err := strconv.ParseInt(hex[5:7], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("browserwin: malformed color %q", hex)
	}
	return &cdp.RGBA{R: r, G: g, B: b, A: 1}, nil
}

// chromeWindow holds the pieces shared by both window kinds.
type chromeWindow struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	windowID    int64
}

func launch(parent context.Context, allocOpts []chromedp.ExecAllocatorOption) (*chromeWindow, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(parent, allocOpts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	w := &chromeWindow{ctx: ctx, cancel: cancel, allocCancel: allocCancel}
	if err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		id, _, err := browserWindowForTarget(ctx)
		if err != nil {
			return err
		}
		w.windowID = id
		return nil
	})); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("browserwin: launch browser: %w", err)
	}
	return w, nil
}

func (w *chromeWindow) close() {
	w.cancel()
	w.allocCancel()
}
