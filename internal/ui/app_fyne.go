//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"gominimap/internal/config"
	"gominimap/internal/crash"
	"gominimap/internal/diagram"
	"gominimap/internal/export"
	applog "gominimap/internal/log"
	"gominimap/internal/minimap"
	"gominimap/internal/session"
	"gominimap/internal/version"
)

// Run opens the desktop window: the diagram fills it and the minimap is
// docked in a corner. path, if set, is loaded immediately.
func Run(path string) error {
	applog.Init(applog.FromEnv())
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("version", version.String()))
	defer crash.Recover(&crash.Context{Command: "ui", Diagram: path})

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", err))
	}

	fyneApp := app.NewWithID("gominimap")
	w := fyneApp.NewWindow("GoMinimap")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 640 {
		winW = 640
	}
	if winH < 480 {
		winH = 480
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")

	// apply is installed once the views exist; until then updates are dropped.
	var apply func(minimap.Snapshot)
	mo := cfg.MinimapOptions()
	mo.Logger = applog.WithComponent("minimap")
	mo.OnUpdate = func(snap minimap.Snapshot) {
		if apply == nil {
			return
		}
		fn := apply
		fyne.Do(func() { fn(snap) })
	}
	sess := session.New(session.Options{Width: float64(winW), Height: float64(winH), Minimap: mo, Logger: l})
	defer sess.Close()

	mini := NewMinimapView(sess, mo.Width, mo.Height)
	view := NewDiagramView(sess)
	applyNow := func(snap minimap.Snapshot) {
		mini.Apply(snap)
		view.Apply(snap)
	}
	sess.Do(func(_ *diagram.Canvas, _ *diagram.Modeling, _ *minimap.Minimap) { apply = applyNow })
	refresh := func() { applyNow(sess.Snapshot()) }
	mini.OnChange = refresh
	view.OnChange = refresh
	if !cfg.Minimap.Open {
		setMinimapOpen(sess, false)
	}

	open := func(p string) {
		if err := sess.LoadFile(p); err != nil {
			l.Error("open diagram failed", slog.String("path", p), slog.Any("err", err))
			dialog.ShowError(err, w)
			status.SetText("Open failed.")
			return
		}
		addRecentDiagram(prefs, p)
		w.SetTitle(fmt.Sprintf("GoMinimap - %s", filepath.Base(p)))
		status.SetText(fmt.Sprintf("Opened %s", p))
		refresh()
	}

	toggle := func() {
		var isOpen bool
		sess.Do(func(_ *diagram.Canvas, _ *diagram.Modeling, mm *minimap.Minimap) {
			mm.Toggle(nil)
			isOpen = mm.IsOpen()
		})
		if isOpen {
			status.SetText("Minimap shown")
		} else {
			status.SetText("Minimap hidden")
		}
		refresh()
	}

	openItem := fyne.NewMenuItem("Open…", func() {
		dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if r == nil {
				return
			}
			p := r.URI().Path()
			_ = r.Close()
			open(p)
		}, w)
	})
	recentItem := fyne.NewMenuItem("Open Recent", nil)
	recentItem.ChildMenu = fyne.NewMenu("")
	for _, p := range loadRecentDiagrams(prefs) {
		recentItem.ChildMenu.Items = append(recentItem.ChildMenu.Items, fyne.NewMenuItem(p, func() { open(p) }))
	}
	exportItem := fyne.NewMenuItem("Export Minimap…", func() {
		dialog.ShowFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if wc == nil {
				return
			}
			p := wc.URI().Path()
			_ = wc.Close()
			if err := export.WriteFile(p, sess.Snapshot(), export.Options{}); err != nil {
				l.Error("export failed", slog.String("path", p), slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			status.SetText(fmt.Sprintf("Exported %s", p))
		}, w)
	})
	fileMenu := fyne.NewMenu("File", openItem, recentItem, fyne.NewMenuItemSeparator(), exportItem)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Toggle Minimap", toggle),
		fyne.NewMenuItem("Fit Diagram", func() { sess.Fit(); refresh() }),
	)
	aboutMenu := fyne.NewMenu("About", fyne.NewMenuItem("Version", func() {
		dialog.ShowInformation("GoMinimap", "Version "+version.String(), w)
	}))
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, viewMenu, aboutMenu))

	w.Canvas().SetOnTypedRune(func(r rune) {
		switch r {
		case 'm', 'M':
			toggle()
		case 'f', 'F':
			sess.Fit()
			refresh()
		}
	})

	stage := container.New(&overlayLayout{position: mo.Position, margin: minimap.DefaultMargin}, view, mini)
	w.SetContent(container.NewBorder(nil, status, nil, nil, stage))

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		w.Close()
	})

	if path != "" {
		open(path)
	} else {
		refresh()
	}
	w.ShowAndRun()
	return nil
}

func setMinimapOpen(sess *session.Session, open bool) {
	sess.Do(func(_ *diagram.Canvas, _ *diagram.Modeling, mm *minimap.Minimap) {
		mm.Toggle(&open)
	})
}

const (
	recentPrefsKey = "recent.diagrams"
	recentMax      = 10
)

func loadRecentDiagrams(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func addRecentDiagram(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	out := []string{abs}
	for _, s := range loadRecentDiagrams(p) {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	b, _ := json.Marshal(out)
	p.SetString(recentPrefsKey, string(b))
}
