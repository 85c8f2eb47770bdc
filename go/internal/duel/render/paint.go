package render

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

// Paint writes the text form of the view to w
func Paint(w io.Writer, v View) error {
	var b bytes.Buffer

	if v.Empty {
		b.WriteString("no duel yet. create one with: create <player> <player>\n")
		_, err := w.Write(b.Bytes())
		return err
	}

	fmt.Fprintf(&b, "duel %s  turn %d  %s", v.DuelID, v.Turn, v.Phase)
	if v.TurnPlayer != "" && !v.Ended {
		fmt.Fprintf(&b, "  to play: %s", v.TurnPlayer)
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("-", 60) + "\n")

	paintPane(&b, v.Top)
	if lp := v.LastPlayed; lp != nil {
		fmt.Fprintf(&b, "  >> %s played %s (gain %s / inflict %s)", lp.PlayerID, lp.CardID, num(lp.Gain), num(lp.Inflict))
		if lp.Option != "" {
			fmt.Fprintf(&b, " as %s", lp.Option)
		}
		b.WriteString("\n")
	}
	paintPane(&b, v.Bottom)

	b.WriteString(strings.Repeat("-", 60) + "\n")
	switch {
	case v.Ended && v.Draw:
		b.WriteString("duel over: draw\n")
	case v.Ended:
		fmt.Fprintf(&b, "duel over: %s wins\n", v.Winner)
	case v.Controls.Enabled:
		b.WriteString("your turn: play <n|card-id> <gain|inflict>, end\n")
	case v.Controls.Visible:
		fmt.Fprintf(&b, "waiting for %s\n", v.TurnPlayer)
	}

	if len(v.Log) > 0 {
		b.WriteString("log:\n")
		for _, l := range v.Log {
			fmt.Fprintf(&b, "  #%d %s %s %s", l.Seq, l.Timestamp, l.PlayerID, l.Action)
			if l.Detail != "" {
				fmt.Fprintf(&b, " %s", l.Detail)
			}
			b.WriteString("\n")
		}
	}

	for _, link := range v.JoinLinks {
		fmt.Fprintf(&b, "join as %s: %s\n", link.PlayerID, link.URL)
	}

	_, err := w.Write(b.Bytes())
	return err
}

func paintPane(b *bytes.Buffer, p PlayerPane) {
	if p.PlayerID == "" {
		b.WriteString("(waiting for opponent)\n")
		return
	}

	name := p.PlayerID
	if p.Local {
		name += " (you)"
	}
	if p.Color != "" {
		name += " " + p.Color
	}
	fmt.Fprintf(b, "%s  life %s  deck %d  graveyard %d", name, num(p.LifePoint), p.DeckSize, p.GraveyardCount)
	if p.HasTurn {
		b.WriteString("  *")
	}
	b.WriteString("\n  hand:")

	if len(p.Hand) == 0 {
		b.WriteString(" empty\n")
		return
	}
	for i, c := range p.Hand {
		if c.FaceDown {
			b.WriteString(" [##]")
			continue
		}
		fmt.Fprintf(b, " %d)%s g%s/i%s", i+1, c.ID, num(c.Gain), num(c.Inflict))
	}
	b.WriteString("\n")
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// RenderText builds and paints the input into a string
func RenderText(in Input) string {
	var b bytes.Buffer
	_ = Paint(&b, BuildView(in))
	return b.String()
}

// Terminal paints views and status lines to a writer
type Terminal struct {
	mu     sync.Mutex
	out    io.Writer
	last   View
	status string
}

// NewTerminal creates a display writing to out
func NewTerminal(out io.Writer) *Terminal {
	return &Terminal{out: out, last: View{Empty: true}}
}

// ShowView repaints the whole view
func (t *Terminal) ShowView(v View) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = v
	return Paint(t.out, v)
}

// ShowStatus prints a status line
func (t *Terminal) ShowStatus(status string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = status
	_, err := fmt.Fprintf(t.out, "[%s]\n", status)
	return err
}

// Last returns the most recently painted view and status
func (t *Terminal) Last() (View, string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last, t.status
}
