package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"github.com/ava12/gramform/parser"
)

const (
	historyFile = ".gramform_history"
	promptMain  = "> "
	promptCont  = ". "
)

// repl reads formulas line by line and evaluates them against tag file.
// Tag and value files are read again for every formula.
// A formula with unclosed group continues on the next line.
func repl(ctx context.Context, tagFile string) error {
	home, _ := os.UserHomeDir()
	histPath := filepath.Join(home, historyFile)

	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	if f, e := os.Open(histPath); e == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, e := os.Create(histPath); e == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	for ctx.Err() == nil {
		formula, ok := readFormula(ln)
		if !ok {
			fmt.Println()
			break
		}

		formula = strings.TrimSpace(formula)
		switch formula {
		case "":
			continue
		case ":quit", ":q":
			return nil
		}

		res, e := evaluate(tagFile, formula)
		if e != nil {
			fmt.Fprintln(os.Stderr, e.Error())
		} else {
			fmt.Print(res)
		}
		ln.AppendHistory(strings.ReplaceAll(formula, "\n", " "))
	}

	return nil
}

// readFormula reads lines until the formula has no unclosed groups.
// Returns false on end of input.
func readFormula(ln *liner.State) (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}

		line, e := ln.Prompt(prompt)
		if errors.Is(e, io.EOF) {
			return "", false
		}
		if e != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		if !incomplete(b.String()) {
			return b.String(), true
		}
	}
}

func incomplete(formula string) bool {
	_, e := tagGrammar.Parse(formula)
	return errors.Is(e, parser.ErrUnclosed)
}
