// cmd/server/simulate.go
package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/gganwoor/unuscado/internal/ai"
	"github.com/gganwoor/unuscado/internal/game"
)

type simOptions struct {
	Games    int
	Players  int
	MaxTurns int
	Seed     int64
}

type simSummary struct {
	Games      int
	Unfinished int
	ByReason   map[game.EndReason]int
	TotalTurns int
}

func simulateCommand() *cli.Command {
	return &cli.Command{
		Name:  "simulate",
		Usage: "play bots-only games headless and report the results",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "games", Value: 100, Usage: "number of games"},
			&cli.IntFlag{Name: "players", Value: 4, Usage: "bots per game"},
			&cli.IntFlag{Name: "max-turns", Value: 2000, Usage: "turn limit per game"},
			&cli.IntFlag{Name: "seed", Usage: "base shuffle seed; 0 picks one from the clock"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			level := "info"
			if cmd.IsSet("log-level") {
				level = cmd.String("log-level")
			}
			logger := newLogger(level)

			opts := simOptions{
				Games:    int(cmd.Int("games")),
				Players:  int(cmd.Int("players")),
				MaxTurns: int(cmd.Int("max-turns")),
				Seed:     cmd.Int("seed"),
			}
			if opts.Seed == 0 {
				opts.Seed = time.Now().UnixNano()
			}
			sum, err := simulate(ctx, logger, opts)
			if err != nil {
				return err
			}

			fields := logrus.Fields{
				"games":      sum.Games,
				"unfinished": sum.Unfinished,
				"seed":       opts.Seed,
			}
			if sum.Games > 0 {
				fields["avg_turns"] = float64(sum.TotalTurns) / float64(sum.Games)
			}
			for reason, n := range sum.ByReason {
				fields[string(reason)] = n
			}
			logger.WithFields(fields).Info("simulation finished")
			return nil
		},
	}
}

// simulate runs opts.Games bots-only games through a session store.
func simulate(ctx context.Context, logger *logrus.Logger, opts simOptions) (simSummary, error) {
	if opts.Players < game.MinPlayers || opts.Players > game.MaxPlayers {
		return simSummary{}, fmt.Errorf("players must be between %d and %d", game.MinPlayers, game.MaxPlayers)
	}
	quiet := logrus.New()
	quiet.SetLevel(logrus.WarnLevel)
	quiet.SetOutput(logger.Out)
	store := game.NewGameStore(game.WithStoreLogger(quiet), game.WithSessionOptions(game.WithLogger(quiet)))

	sum := simSummary{ByReason: make(map[game.EndReason]int)}
	for i := 0; i < opts.Games; i++ {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		s := store.Create(game.WithRand(rand.New(rand.NewSource(opts.Seed + int64(i)))))
		res, err := playOne(s, opts)
		store.Remove(s.ID)
		if err != nil {
			return sum, fmt.Errorf("game %d: %w", i, err)
		}

		sum.Games++
		sum.TotalTurns += res.Turns
		if !res.Finished {
			sum.Unfinished++
		} else {
			sum.ByReason[res.Reason]++
		}
		logger.WithFields(logrus.Fields{
			"game":   i,
			"winner": res.WinnerID,
			"reason": res.Reason,
			"turns":  res.Turns,
		}).Debug("game played")
	}
	return sum, nil
}

func playOne(s *game.Session, opts simOptions) (ai.Result, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	for p := 0; p < opts.Players; p++ {
		if err := s.AddPlayer(fmt.Sprintf("bot-%d", p+1), fmt.Sprintf("Bot %d", p+1), true); err != nil {
			return ai.Result{}, err
		}
	}
	if err := s.Start(); err != nil {
		return ai.Result{}, err
	}
	return ai.PlayOut(s, opts.MaxTurns)
}
