// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/olegiv/ocms-storefront/internal/dropdown"
)

// DropdownPosition handles GET /api/dropdown-position. The category bar
// script sends the trigger's bounding box and the viewport, and places the
// flyout at the returned document coordinates.
func DropdownPosition(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		trigger dropdown.Rect
		vp      dropdown.Viewport
		err     error
	)
	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"left", &trigger.Left},
		{"right", &trigger.Right},
		{"bottom", &trigger.Bottom},
		{"width", &vp.Width},
		{"scrollX", &vp.ScrollX},
		{"scrollY", &vp.ScrollY},
	} {
		if *p.dst, err = parseCoord(q, p.name); err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid "+p.name)
			return
		}
	}

	writeJSON(w, http.StatusOK, dropdown.Compute(trigger, vp))
}

// parseCoord reads a finite number from q. A missing value is 0.
func parseCoord(q url.Values, name string) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, strconv.ErrRange
	}
	return v, nil
}
