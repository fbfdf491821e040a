package browserwin

import (
	"context"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"

	"github.com/neferent/streamlabs-obs/display"
)

func browserWindowForTarget(ctx context.Context) (int64, *browser.Bounds, error) {
	id, bounds, err := browser.GetWindowForTarget().Do(ctx)
	if err != nil {
		return 0, nil, err
	}
	return int64(id), bounds, nil
}

func setWindowBounds(ctx context.Context, windowID int64, r display.Rect) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return browser.SetWindowBounds(browser.WindowID(windowID), &browser.Bounds{
			Left:   int64(r.X),
			Top:    int64(r.Y),
			Width:  int64(r.Width),
			Height: int64(r.Height),
		}).Do(ctx)
	}))
}

func getWindowBounds(ctx context.Context, windowID int64) (display.Rect, error) {
	var out display.Rect
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		bounds, err := browser.GetWindowBounds(browser.WindowID(windowID)).Do(ctx)
		if err != nil {
			return err
		}
		out = display.Rect{
			X:      int(bounds.Left),
			Y:      int(bounds.Top),
			Width:  int(bounds.Width),
			Height: int(bounds.Height),
		}
		return nil
	}))
	return out, err
}

func setWindowState(ctx context.Context, windowID int64, windowState browser.WindowState) error {
	return chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return browser.SetWindowBounds(browser.WindowID(windowID), &browser.Bounds{
			WindowState: windowState,
		}).Do(ctx)
	}))
}
