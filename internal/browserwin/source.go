package browserwin

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"golang.org/x/image/draw"

	"github.com/neferent/streamlabs-obs/display"
	"github.com/neferent/streamlabs-obs/overlay"
	"github.com/neferent/streamlabs-obs/state"
)

// sourceWindow is the hidden, off-screen-rendered half of a pair: a headless
// browser whose captured frames feed the compositor.
type sourceWindow struct {
	key           state.WindowKey
	win           *chromeWindow
	frameInterval time.Duration

	mu     sync.Mutex
	bounds display.Rect
	sink   overlay.FrameSink

	ready     chan struct{}
	readyOnce sync.Once
	quit      chan struct{}
	closeOnce sync.Once
}

func newSourceWindow(parent context.Context, opts overlay.SourceOptions, frameInterval time.Duration) (*sourceWindow, error) {
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", true),
		chromedp.Flag("mute-audio", true),
		chromedp.WindowSize(opts.Width, opts.Height),
	)

	win, err := launch(parent, allocOpts)
	if err != nil {
		return nil, err
	}

	w := &sourceWindow{
		key:           opts.Key,
		win:           win,
		frameInterval: frameInterval,
		bounds:        display.Rect{Width: opts.Width, Height: opts.Height},
		ready:         make(chan struct{}),
		quit:          make(chan struct{}),
	}

	if opts.Background != "" {
		color, err := parseColor(opts.Background)
		if err != nil {
			win.close()
			return nil, err
		}
		if err := chromedp.Run(win.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDefaultBackgroundColorOverride().WithColor(color).Do(ctx)
		})); err != nil {
			win.close()
			return nil, fmt.Errorf("browserwin: apply background: %w", err)
		}
	}
	return w, nil
}

func (w *sourceWindow) LoadURL(url string) error {
	if err := chromedp.Run(w.win.ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	); err != nil {
		return fmt.Errorf("browserwin: load %s: %w", url, err)
	}
	w.readyOnce.Do(func() {
		close(w.ready)
		go w.frameLoop()
	})
	return nil
}

func (w *sourceWindow) Ready() <-chan struct{} {
	return w.ready
}

func (w *sourceWindow) Handle() uint64 {
	return uint64(w.win.windowID)
}

func (w *sourceWindow) SetFrameSink(sink overlay.FrameSink) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.sink = sink
}

// SetBounds records position and resizes the rendered viewport. A headless
// window has no on-screen placement; position matters only to the compositor.
func (w *sourceWindow) SetBounds(r display.Rect) error {
	w.mu.Lock()
	w.bounds = r
	w.mu.Unlock()
	return chromedp.Run(w.win.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return emulation.SetDeviceMetricsOverride(int64(r.Width), int64(r.Height), 1, false).Do(ctx)
	}))
}

func (w *sourceWindow) Bounds() (display.Rect, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bounds, nil
}

// Show and Hide are no-ops: a headless source window is never on screen, its
// visibility is the compositor's concern.
func (w *sourceWindow) Show() error { return nil }
func (w *sourceWindow) Hide() error { return nil }

func (w *sourceWindow) Close() error {
	w.closeOnce.Do(func() {
		close(w.quit)
		w.win.close()
	})
	return nil
}

// frameLoop captures one screenshot per interval, scales it to the current
// bounds, and hands the RGBA pixels to the sink.
func (w *sourceWindow) frameLoop() {
	ticker := time.NewTicker(w.frameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.quit:
			return
		case <-w.win.ctx.Done():
			return
		case <-ticker.C:
		}

		w.mu.Lock()
		sink := w.sink
		bounds := w.bounds
		w.mu.Unlock()
		if sink == nil {
			continue
		}

		var shot []byte
		if err := chromedp.Run(w.win.ctx, chromedp.CaptureScreenshot(&shot)); err != nil {
			log.Printf("browserwin: capture %s: %v", w.key, err)
			continue
		}
		frame, err := decodeFrame(shot, bounds.Width, bounds.Height)
		if err != nil {
			log.Printf("browserwin: decode %s: %v", w.key, err)
			continue
		}
		sink(bounds.Width, bounds.Height, frame)
	}
}

// decodeFrame decodes a PNG screenshot and scales it to width x height,
// returning tightly packed RGBA pixels.
func decodeFrame(shot []byte, width, height int) ([]byte, error) {
	src, err := png.Decode(bytes.NewReader(shot))
	if err != nil {
		return nil, err
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		draw.Copy(dst, image.Point{}, src, src.Bounds(), draw.Src, nil)
	} else {
		draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	return dst.Pix, nil
}
