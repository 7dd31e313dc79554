// Package browser wraps go-rod headless-browser automation for the
// Overlay Rasterizer (C5): one browser instance is launched per run and
// reused across every container/app page, each page closed after its
// screenshot.
package browser

import (
	"fmt"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// BrowserSession represents one run's shared browser automation session.
// Unlike a single-page session, it owns only the Browser/Launcher; each
// rasterization opens and closes its own Page so containers and apps
// never share mutable page state.
type BrowserSession struct {
	Launcher *launcher.Launcher
	Browser  *rod.Browser
}

// NewBrowserSession launches a headless browser with sandboxing disabled
// and local file access allowed, per spec.md §6's external toolchain
// contract for the headless browser.
func NewBrowserSession() (*BrowserSession, error) {
	l := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("no-sandbox").
		Set("allow-file-access-from-files")

	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("error launching browser: %v", err)
	}

	browser := rod.New().ControlURL(url)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("error connecting to browser: %v", err)
	}

	return &BrowserSession{Launcher: l, Browser: browser}, nil
}

// Close tears the session down, closing the browser and cleaning up the
// launcher's temporary profile.
func (bs *BrowserSession) Close() {
	if bs.Browser != nil {
		bs.Browser.Close()
	}
	if bs.Launcher != nil {
		bs.Launcher.Cleanup()
	}
}

// NewPage opens a fresh page sized to (width, height), timed out after the
// given duration. It does not change the background; callers apply
// SetTransparentBackground themselves. Callers must close the returned
// page when done with it.
func (bs *BrowserSession) NewPage(width, height int, timeout time.Duration) (*rod.Page, error) {
	var page *rod.Page
	var panicErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				panicErr = fmt.Errorf("panic creating page: %v", r)
			}
		}()
		page = bs.Browser.MustPage()
	}()
	if panicErr != nil {
		return nil, panicErr
	}
	if page == nil {
		return nil, fmt.Errorf("failed to create page")
	}
	page = page.Timeout(timeout)
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  width,
		Height: height,
	}); err != nil {
		page.Close()
		return nil, fmt.Errorf("error setting viewport: %v", err)
	}
	return page, nil
}

// SetTransparentBackground overrides the page's default background color
// with a fully transparent one, so a subsequent screenshot captures only
// the rendered content against alpha 0 rather than browser-default white.
func SetTransparentBackground(page *rod.Page) error {
	return proto.EmulationSetDefaultBackgroundColorOverride{
		Color: &proto.CSSRGBA{R: 0, G: 0, B: 0, A: 0},
	}.Call(page)
}

// NavigateAndWaitLoad navigates to url and waits for the load event,
// without any additional idle-network grace period — the caller decides
// its own readiness contract afterwards (network-idle for containers,
// polling window.__stsRenderComplete for apps).
func NavigateAndWaitLoad(page *rod.Page, url string) error {
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("error navigating to %s: %v", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("error waiting for page load: %v", err)
	}
	return nil
}

// WaitNetworkIdle blocks until no network activity has occurred for the
// given quiet period, the readiness contract containers use (spec.md
// §4.5).
func WaitNetworkIdle(page *rod.Page, quiet time.Duration) error {
	wait := page.WaitRequestIdle(quiet, nil, nil, nil)
	wait()
	return nil
}

// ScreenshotTransparentClip captures a PNG of the page clipped to
// (0,0,width,height) with a transparent background, the capture contract
// every container/app rasterization relies on.
func ScreenshotTransparentClip(page *rod.Page, width, height int) ([]byte, error) {
	return page.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      0,
			Y:      0,
			Width:  float64(width),
			Height: float64(height),
			Scale:  1,
		},
		CaptureBeyondViewport: true,
	})
}

// EnsureDir creates dir (and parents) if it doesn't already exist.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}
