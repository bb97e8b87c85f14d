package view

import (
	"fmt"
	"strings"

	"github.com/ritzau/netview/pkg/layout"
	"github.com/ritzau/netview/pkg/model"
)

// Mode is the kind of query a network came from
type Mode int

const (
	ModeGlobal  Mode = iota // unscoped network over a time window
	ModeFocal               // network around one entity
	ModeArticle             // network extracted from one article
)

func (m Mode) String() string {
	switch m {
	case ModeFocal:
		return "focal"
	case ModeArticle:
		return "article"
	}
	return "global"
}

// ParseMode parses a mode name. An empty name infers the mode from the
// response: focal responses carry a focal entity.
func ParseMode(name string, resp *model.NetworkResponse) (Mode, error) {
	switch strings.ToLower(name) {
	case "":
		if resp != nil && resp.IsFocal() {
			return ModeFocal, nil
		}
		return ModeGlobal, nil
	case "global":
		return ModeGlobal, nil
	case "focal":
		return ModeFocal, nil
	case "article":
		return ModeArticle, nil
	}
	return ModeGlobal, fmt.Errorf("unknown network mode %q", name)
}

// initialShowAll decides the top-N toggle for a fresh network. Global
// networks are shown whole, focal ones trimmed, and per-article ones trimmed
// only when they have more entities than fit.
func (m Mode) initialShowAll(resp *model.NetworkResponse, snap *model.Snapshot, topN int) bool {
	switch m {
	case ModeFocal:
		return false
	case ModeArticle:
		total := resp.TotalEntities
		if total <= 0 {
			total = snap.NodeCount()
		}
		return layout.DefaultShowAll(total, topN)
	}
	return true
}
