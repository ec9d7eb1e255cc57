// Package summary renders a split into a shareable text message.
package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/zombor/splitsy/internal/bill"
	"github.com/zombor/splitsy/internal/split"
)

// Options controls what the summary contains
type Options struct {
	// IncludeItemBreakdown lists each participant's items, tax and service
	// under their line. Only itemized splits have a breakdown.
	IncludeItemBreakdown bool `json:"include_item_breakdown"`
	// StripEmbellishments drops the decorative emoji for transports that
	// render them poorly.
	StripEmbellishments bool `json:"strip_embellishments"`
}

const (
	glyphTitle     = "\U0001F4B0" // money bag
	glyphDate      = "\U0001F4C5" // calendar
	glyphTotal     = "\U0001F9FE" // receipt
	glyphBreakdown = "\U0001F4B8" // money with wings
	glyphFooter    = "\u2728"     // sparkles

	footer = "Calculated with Splitsy - Fair bills, fast splits."
)

// Format renders the summary message. Owed amounts are taken from people as
// given, so callers should pass the output of split.Allocate. now supplies the
// date line.
func Format(people []split.Participant, b bill.Bill, m split.Method, a split.Assignments, opts Options, now time.Time) string {
	var sb strings.Builder
	deco := func(glyph string) string {
		if opts.StripEmbellishments {
			return ""
		}
		return glyph + " "
	}

	sb.WriteString(deco(glyphTitle) + "Split Bill Summary " + methodLabel(m) + "\n")
	sb.WriteString(deco(glyphDate) + FormatDate(now) + "\n")
	sb.WriteString(deco(glyphTotal) + "Total Bill: " + FormatCurrency(b.Total) + "\n")

	sb.WriteString("\n" + deco(glyphBreakdown) + "Payment Breakdown:\n")

	var shares []split.Share
	breakdown := m == split.Itemized && opts.IncludeItemBreakdown
	if breakdown {
		shares = split.Breakdown(b, people, a)
	}

	for i, p := range people {
		fmt.Fprintf(&sb, "%d. %s pays: %s\n", i+1, p.Name, FormatCurrency(p.OwedAmount))
		if breakdown {
			writeShare(&sb, shares[i])
		}
	}

	sb.WriteString("\n" + deco(glyphFooter) + footer + "\n")
	return sb.String()
}

func methodLabel(m split.Method) string {
	if m == split.Itemized {
		return "- Split Method: Custom (by items)"
	}
	return "- Equal (split evenly)"
}

func writeShare(sb *strings.Builder, share split.Share) {
	if len(share.Items) > 0 {
		sb.WriteString("   - Items:\n")
		for _, item := range share.Items {
			label := item.Name
			if item.Quantity > 1 {
				label += fmt.Sprintf(" (x%d)", item.Quantity)
			}
			if item.Sharers > 1 {
				label += " (shared)"
			}
			fmt.Fprintf(sb, "     • %s: %s\n", label, FormatCurrency(item.Amount))
		}
	}
	if share.Tax > 0 {
		sb.WriteString("   - Tax: " + FormatCurrency(share.Tax) + "\n")
	}
	if share.Service > 0 {
		sb.WriteString("   - Service Charge: " + FormatCurrency(share.Service) + "\n")
	}
}
