/*
gramform is a console utility selecting values by tag algebra formulas.
Usage is

	gramform [-v <file>] [-f | -d] [-w] <tag file> [<formula>]

<tag file> is a YAML map of tag names to keys (a single key or a list of keys);

-v <file> defines YAML map of values, selected values are printed as YAML map;
without it every key mentioned in tag file is a value and selected keys are printed one per line;

-f prints canonical form of the formula instead of evaluating it;

-d prints parse tree of the formula instead of evaluating it;

-w watches tag and value files and evaluates the formula again on every change;

<formula> is evaluated once; if omitted, formulas are read interactively.
Formulas use "|" (union), "&" (intersection), "^" (symmetric difference),
"!" or "~" (complement), and parentheses.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ava12/gramform/tagops"
	"github.com/ava12/gramform/tree"
)

var (
	valueFile                   string
	formatOnly, dumpOnly, watch bool
)

var tagGrammar = tagops.New[any]()

func main() {
	log.SetFlags(0)
	log.SetPrefix("gramform: ")

	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "Usage is  gramform [-v <file>] [-f | -d] [-w] <tag file> [<formula>]")
		flag.PrintDefaults()
		fmt.Fprintln(flag.CommandLine.Output(), "  <tag file>")
		fmt.Fprintln(flag.CommandLine.Output(), "\tYAML map of tag names to keys")
		fmt.Fprintln(flag.CommandLine.Output(), "  <formula>")
		fmt.Fprintln(flag.CommandLine.Output(), "\ttag formula, read interactively if omitted")
	}

	flag.StringVar(&valueFile, "v", "", "YAML file with values to select")
	flag.BoolVar(&formatOnly, "f", false, "print canonical formula")
	flag.BoolVar(&dumpOnly, "d", false, "print formula parse tree")
	flag.BoolVar(&watch, "w", false, "evaluate formula again when tag or value file changes")
	flag.Parse()

	tagFile := flag.Arg(0)
	formula := flag.Arg(1)
	if tagFile == "" || flag.NArg() > 2 || (watch && formula == "") {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var e error
	switch {
	case formula == "":
		e = repl(ctx, tagFile)
	case watch:
		e = watchFiles(ctx, tagFile, formula)
	default:
		var res string
		res, e = evaluate(tagFile, formula)
		if e == nil {
			fmt.Print(res)
		}
	}

	if e != nil {
		log.Println(e.Error())
		os.Exit(3)
	}
}

// evaluate runs a single formula against files and returns printable result.
func evaluate(tagFile, formula string) (string, error) {
	switch {
	case formatOnly:
		res, e := tagGrammar.Format(formula)
		if e != nil {
			return "", e
		}
		return res + "\n", nil

	case dumpOnly:
		root, e := tagGrammar.Parse(formula)
		if e != nil {
			return "", e
		}
		return tree.Dump(root) + "\n", nil
	}

	f, e := tagGrammar.Compile(formula)
	if e != nil {
		return "", e
	}

	ds, e := loadDataset(tagFile, valueFile)
	if e != nil {
		return "", e
	}

	return ds.formatSelection(f(ds.tags, ds.values))
}
