package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mcdev12/duelclient/go/internal/duel/render"
	"github.com/mcdev12/duelclient/go/internal/models"
)

var errUsage = errors.New("usage")

// commandClient is the part of the duel client the prompt drives
type commandClient interface {
	CreateDuel(ctx context.Context, players []string) error
	JoinDuel(ctx context.Context, duelID, playerID string) error
	PlayCard(ctx context.Context, card string, option models.PlayOption) error
	EndTurn(ctx context.Context) error
	Hello(ctx context.Context) string
	JoinLinks(ctx context.Context) (map[string]string, error)
	Stats(ctx context.Context) (map[string]interface{}, error)
}

const helpText = `commands:
  create <player> <player>      start a new duel, you play as the first player
  join <duel-id> <player-id>    join an existing duel
  play <n|card-id> <gain|inflict>
  end                           end your turn
  links                         show join links with qr codes
  hello                         check the server is alive
  stats                         show client counters
  quit
`

// runCommands reads commands from in until EOF, quit or ctx ends
func runCommands(ctx context.Context, c commandClient, in io.Reader, out io.Writer, quit func()) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return
		}
		done, err := execute(ctx, c, scanner.Text(), out)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if done {
			quit()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Error().Err(err).Msg("failed to read commands")
	}
}

func execute(ctx context.Context, c commandClient, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "create":
		if len(args) < 1 {
			return false, fmt.Errorf("%w: create <player> <player>", errUsage)
		}
		return false, c.CreateDuel(ctx, args)

	case "join":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: join <duel-id> <player-id>", errUsage)
		}
		return false, c.JoinDuel(ctx, args[0], args[1])

	case "play":
		if len(args) != 2 {
			return false, fmt.Errorf("%w: play <n|card-id> <gain|inflict>", errUsage)
		}
		option, ok := models.ParsePlayOption(args[1])
		if !ok {
			return false, fmt.Errorf("%w: option must be gain or inflict", errUsage)
		}
		return false, c.PlayCard(ctx, args[0], option)

	case "end":
		return false, c.EndTurn(ctx)

	case "hello":
		fmt.Fprintln(out, c.Hello(ctx))
		return false, nil

	case "links":
		return false, printLinks(ctx, c, out)

	case "stats":
		stats, err := c.Stats(ctx)
		if err != nil {
			return false, err
		}
		keys := make([]string, 0, len(stats))
		for k := range stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%s: %v\n", k, stats[k])
		}
		return false, nil

	case "help", "?":
		fmt.Fprint(out, helpText)
		return false, nil

	case "quit", "exit":
		return true, nil
	}

	return false, fmt.Errorf("%w: unknown command %q, try help", errUsage, cmd)
}

func printLinks(ctx context.Context, c commandClient, out io.Writer) error {
	links, err := c.JoinLinks(ctx)
	if err != nil {
		return err
	}
	if len(links) == 0 {
		fmt.Fprintln(out, "no join links yet")
		return nil
	}

	players := make([]string, 0, len(links))
	for p := range links {
		players = append(players, p)
	}
	sort.Strings(players)

	for _, p := range players {
		fmt.Fprintf(out, "join as %s: %s\n", p, links[p])
		qr, err := render.JoinQR(links[p])
		if err != nil {
			log.Warn().Err(err).Str("player_id", p).Msg("skipping qr code")
			continue
		}
		fmt.Fprint(out, qr)
	}
	return nil
}
