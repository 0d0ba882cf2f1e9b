// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package dropdown computes where a category flyout menu is placed relative to
// its trigger so that it stays inside the viewport.
package dropdown

const (
	// Width is the rendered width of the flyout menu.
	Width = 240
	// Margin is the gap kept from the viewport edge when re-anchoring fails.
	Margin = 16
)

// Rect is the trigger's bounding box in viewport coordinates.
type Rect struct {
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// Viewport describes the visible area and its scroll offsets.
type Viewport struct {
	Width   float64 `json:"width"`
	ScrollX float64 `json:"scrollX"`
	ScrollY float64 `json:"scrollY"`
}

// Position is the flyout's top-left corner in document coordinates.
type Position struct {
	Top  float64 `json:"top"`
	Left float64 `json:"left"`
}

// Compute places the menu directly below the trigger. It is left-aligned with
// the trigger unless that overflows the viewport, in which case it is
// right-aligned; when right-aligning would go off-screen it is pinned near the
// viewport's right edge, and never placed left of Margin.
func Compute(trigger Rect, vp Viewport) Position {
	pos := Position{
		Top:  trigger.Bottom + vp.ScrollY,
		Left: trigger.Left + vp.ScrollX,
	}

	if pos.Left+Width > vp.Width {
		pos.Left = trigger.Right + vp.ScrollX - Width
		if pos.Left < 0 {
			pos.Left = vp.Width - Width - Margin
		}
	}
	if pos.Left < 0 {
		pos.Left = Margin
	}
	return pos
}
