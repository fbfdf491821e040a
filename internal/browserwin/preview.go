package browserwin

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"github.com/neferent/streamlabs-obs/display"
	"github.com/neferent/streamlabs-obs/overlay"
	"github.com/neferent/streamlabs-obs/state"
)

// previewWindow is the visible half of a pair: a frameless headful app window
// the user drags to place the overlay. Its on-screen bounds are authoritative
// while preview mode is active.
type previewWindow struct {
	key state.WindowKey
	win *chromeWindow

	mu        sync.Mutex
	closeOnce sync.Once
}

func newPreviewWindow(parent context.Context, opts overlay.PreviewOptions) (*previewWindow, error) {
	placeholder := "data:text/html," + url.PathEscape(placeholderHTML(opts.Key))
	allocOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	allocOpts = append(allocOpts,
		chromedp.Flag("headless", false),
		chromedp.Flag("app", placeholder),
		chromedp.WindowSize(opts.Width, opts.Height),
	)

	win, err := launch(parent, allocOpts)
	if err != nil {
		return nil, err
	}
	w := &previewWindow{key: opts.Key, win: win}

	// Created hidden; preview mode shows it explicitly.
	if err := w.Hide(); err != nil {
		w.win.close()
		return nil, err
	}
	return w, nil
}

func (w *previewWindow) SetBounds(r display.Rect) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return setWindowBounds(w.win.ctx, w.win.windowID, r)
}

// Bounds reads the window's current on-screen geometry, including any drag
// the user performed.
func (w *previewWindow) Bounds() (display.Rect, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return getWindowBounds(w.win.ctx, w.win.windowID)
}

func (w *previewWindow) Show() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return setWindowState(w.win.ctx, w.win.windowID, browser.WindowStateNormal)
}

func (w *previewWindow) Hide() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return setWindowState(w.win.ctx, w.win.windowID, browser.WindowStateMinimized)
}

func (w *previewWindow) Close() error {
	w.closeOnce.Do(func() {
		w.win.close()
	})
	return nil
}

func placeholderHTML(key state.WindowKey) string {
	label := "Overlay"
	switch key {
	case state.WindowChat:
		label = "Chat"
	case state.WindowRecentEvents:
		label = "Recent Events"
	}
	return fmt.Sprintf(
		`<html><head><title>%s</title></head>`+
			`<body style="margin:0;background:rgba(23,36,45,0.6);color:#fff;`+
			`font-family:sans-serif;display:flex;align-items:center;justify-content:center">`+
			`<div>%s &mdash; drag to position</div></body></html>`,
		label, label)
}
