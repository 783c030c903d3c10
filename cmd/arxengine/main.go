// arxengine - command line front end for the Arx engine
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yourusername/arxengine/internal/boardid"
	"github.com/yourusername/arxengine/internal/config"
	"github.com/yourusername/arxengine/pkg/engine"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "export":
		cmdExport(args)
	case "import":
		cmdImport(args)
	case "moves":
		cmdMoves(args)
	case "play":
		cmdPlay(args)
	case "bestmove":
		cmdBestMove(args)
	case "analyze":
		cmdAnalyze(args)
	case "selfplay":
		cmdSelfPlay(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`arxengine - Arx Engine

Usage: arxengine <command> [options]

Commands:
  export     Print the starting position's board ID
  import     Decode a board ID and print the position
  moves      List candidate moves, optionally from one square
  play       Apply a move and print the new board ID
  bestmove   Search for the best move
  analyze    Search and print every candidate's score
  selfplay   Let the engine play both sides

Use "arxengine <command> -h" for command-specific help.

Board ID Format:
  The standard base64 form of the 82-byte board encoding.
  Moves are written "A3-B4", or "A3^B4" to move only the top of a stack.`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func parseBoard(id string) engine.Board {
	if id == "" {
		return engine.StartingPosition()
	}
	board, err := boardid.BoardFromID(id)
	if err != nil {
		fatalf("%v", err)
	}
	return board
}

// engineFlags are shared by the searching commands
type engineFlags struct {
	config     *string
	difficulty *string
	backend    *string
	verbose    *bool
}

func addEngineFlags(fs *flag.FlagSet) engineFlags {
	return engineFlags{
		config:     fs.String("config", "", "Path to YAML configuration file"),
		difficulty: fs.String("difficulty", "", "Search preset: beginner, easy, medium, hard or expert"),
		backend:    fs.String("gpu", "", "Compute backend: auto, software or none"),
		verbose:    fs.Bool("v", false, "Log search details"),
	}
}

func (f engineFlags) createEngine() *engine.Engine {
	cfg, err := config.Load(*f.config)
	if err != nil {
		fatalf("%v", err)
	}
	if *f.backend != "" {
		cfg.GPU.Backend = *f.backend
	}
	if *f.difficulty != "" {
		cfg.Engine.Difficulty = *f.difficulty
		if err := cfg.ApplyDifficulty(); err != nil {
			fatalf("%v", err)
		}
	}
	cfg.Log.Console = true
	cfg.Log.Level = zerolog.WarnLevel.String()
	if *f.verbose {
		cfg.Log.Level = zerolog.DebugLevel.String()
	}

	eng, err := cfg.NewEngine(cfg.Log.NewLogger())
	if err != nil {
		fatalf("%v", err)
	}
	return eng
}

func cmdExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	show := fs.Bool("show", false, "Also print the board")
	fs.Parse(args)

	board := engine.StartingPosition()
	fmt.Println(boardid.BoardID(board))
	if *show {
		fmt.Print(board)
	}
}

func cmdImport(args []string) {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		fatalf("usage: arxengine import <boardID>")
	}
	board := parseBoard(fs.Arg(0))
	fmt.Print(board)

	kings, occupied := board.CountKings()
	fmt.Printf("Pieces: %d occupied squares, %d Kings\n", occupied, kings)
	fmt.Printf("Material: %+d for %s\n", engine.EvaluateBoard(&board, engine.DefaultPieceValues(), true), board.SideToMove())
}

func cmdMoves(args []string) {
	fs := flag.NewFlagSet("moves", flag.ExitOnError)
	boardFlag := fs.String("board", "", "Board ID (default: starting position)")
	fs.Parse(args)

	board := parseBoard(*boardFlag)
	candidates := engine.GenerateMoves(board)

	if fs.NArg() > 0 {
		from, err := boardid.ParsePosition(fs.Arg(0))
		if err != nil {
			fatalf("%v", err)
		}
		filtered := candidates[:0]
		for _, c := range candidates {
			if c.From == from {
				filtered = append(filtered, c)
			}
		}
		candidates = filtered
		if p := board.At(from); !p.IsEmpty() {
			fmt.Printf("%s: %s %s\n", from, p.Color, p.Symbol())
		}
	}

	fmt.Printf("%s to move, %d candidate moves\n", board.SideToMove(), len(candidates))
	for i, c := range candidates {
		label := ""
		switch {
		case c.ForceUnstack:
			label = " (forced unstack)"
		case c.Unstackable:
			label = " (unstackable)"
		}
		fmt.Printf("  %2d. %s%s\n", i+1, c, label)
	}
}

func cmdPlay(args []string) {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	boardFlag := fs.String("board", "", "Board ID (default: starting position)")
	moveFlag := fs.String("move", "", "Move to play, e.g. A3-B4")
	fs.Parse(args)

	if *moveFlag == "" {
		fatalf("move required")
	}
	m, err := boardid.ParseMove(*moveFlag)
	if err != nil {
		fatalf("%v", err)
	}
	next, err := engine.PlayMove(parseBoard(*boardFlag), m)
	if err != nil {
		fatalf("%v", err)
	}
	fmt.Print(next)
	fmt.Println(boardid.BoardID(next))
}

func cmdBestMove(args []string) {
	fs := flag.NewFlagSet("bestmove", flag.ExitOnError)
	boardFlag := fs.String("board", "", "Board ID (default: starting position)")
	ef := addEngineFlags(fs)
	fs.Parse(args)

	eng := ef.createEngine()
	board := parseBoard(*boardFlag)

	start := time.Now()
	m, err := eng.FindBestMove(board)
	if err != nil {
		fatalf("%v", err)
	}
	elapsed := time.Since(start)

	next, _ := engine.ApplyMove(board, m)
	stats := eng.Statistics()
	fmt.Printf("Best move: %s\n", m)
	fmt.Printf("Searched %d candidates, %d simulations, %.1f plies each (%v)\n",
		stats.LastSearchMoves, stats.SimulationsRun, stats.AvgMovesPerSimulation(), elapsed.Round(time.Millisecond))
	if stats.GPUBatchesProcessed > 0 {
		fmt.Printf("GPU batches: %d, CPU simulations: %d\n", stats.GPUBatchesProcessed, stats.CPUSimulations)
	}
	fmt.Println(boardid.BoardID(next))
}

func cmdAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	boardFlag := fs.String("board", "", "Board ID (default: starting position)")
	top := fs.Int("top", 10, "Number of candidates to show (0 = all)")
	ef := addEngineFlags(fs)
	fs.Parse(args)

	eng := ef.createEngine()
	analyses, err := eng.Analyze(parseBoard(*boardFlag))
	if err != nil {
		fatalf("%v", err)
	}

	sorted := make([]engine.MoveAnalysis, len(analyses))
	copy(sorted, analyses)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Average > sorted[j].Average
	})
	if *top > 0 && *top < len(sorted) {
		sorted = sorted[:*top]
	}

	fmt.Printf("%-4s %-7s %9s %9s %6s\n", "#", "Move", "Average", "StdDev", "Sims")
	fmt.Println(strings.Repeat("-", 39))
	for i, a := range sorted {
		fmt.Printf("%-4d %-7s %+9.3f %9.3f %6d\n", i+1, a.Move, a.Average, a.StdDev, a.Simulations)
	}
}

func cmdSelfPlay(args []string) {
	fs := flag.NewFlagSet("selfplay", flag.ExitOnError)
	boardFlag := fs.String("board", "", "Board ID (default: starting position)")
	n := fs.Int("n", 20, "Maximum number of moves")
	show := fs.Bool("show", false, "Print the board after every move")
	ef := addEngineFlags(fs)
	fs.Parse(args)

	eng := ef.createEngine()
	final, err := eng.SelfPlay(parseBoard(*boardFlag), *n, func(step engine.SelfPlayStep) bool {
		side := step.Board.SideToMove().Opponent()
		fmt.Printf("%3d. %-5s %s\n", step.Ply, side, step.Move)
		if *show {
			fmt.Print(step.Board)
		}
		return true
	})
	if err != nil {
		fatalf("%v", err)
	}

	fmt.Print(final)
	if final.GameOver {
		fmt.Printf("%s wins by King capture\n", final.SideToMove().Opponent())
	}
	fmt.Println(boardid.BoardID(final))
}
