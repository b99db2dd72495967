package browser

import (
	"fmt"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// blockable maps config names to CDP resource types.
var blockable = map[string]proto.NetworkResourceType{
	"images":      proto.NetworkResourceTypeImage,
	"fonts":       proto.NetworkResourceTypeFont,
	"media":       proto.NetworkResourceTypeMedia,
	"stylesheets": proto.NetworkResourceTypeStylesheet,
}

// blockedTypes resolves config names (plural aliases or raw CDP type names,
// any case) to deduplicated CDP resource types. Unknown names are returned
// separately.
func blockedTypes(names []string) (types []proto.NetworkResourceType, unknown []string) {
	seen := make(map[proto.NetworkResourceType]bool)
	for _, n := range names {
		rt, ok := blockable[strings.ToLower(n)]
		if !ok {
			rt, ok = cdpType(n)
		}
		if !ok {
			unknown = append(unknown, n)
			continue
		}
		if !seen[rt] {
			seen[rt] = true
			types = append(types, rt)
		}
	}
	return types, unknown
}

func cdpType(name string) (proto.NetworkResourceType, bool) {
	for _, rt := range blockable {
		if strings.EqualFold(string(rt), name) {
			return rt, true
		}
	}
	return "", false
}

// applyResourceBlocking fails every request of the given types. Only those
// types are intercepted; everything else reaches the network untouched.
// The returned router must be stopped when the tab closes.
func applyResourceBlocking(page *rod.Page, types []proto.NetworkResourceType) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	for _, rt := range types {
		err := router.Add("*", rt, func(h *rod.Hijack) {
			h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		})
		if err != nil {
			router.Stop()
			return nil, fmt.Errorf("browser: block %s: %w", rt, err)
		}
	}
	go router.Run()
	return router, nil
}
