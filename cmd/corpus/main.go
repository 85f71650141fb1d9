// Command corpus provides corpus preparation tooling: corpus CSV creation
// from a directory of text files, directory statistics, and unigram
// frequency tables.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/newa-nlp/newasearch/internal/corpus"
	"github.com/newa-nlp/newasearch/internal/tokenizer"
	"github.com/newa-nlp/newasearch/internal/unigram"
	"github.com/newa-nlp/newasearch/pkg/logger"
)

func main() {
	logger.Setup("info", "text")
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "create-csv":
		err = runCreateCSV(os.Args[2:])
	case "stats":
		err = runStats(os.Args[2:])
	case "unigram":
		err = runUnigram(os.Args[2:])
	case "unigram-csv":
		err = runUnigramCSV(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: corpus <command> [flags]

commands:
  create-csv   collect a directory of .txt files into a corpus CSV
  stats        report file count and sizes for a corpus directory
  unigram      build a token frequency table from a directory of .txt files
  unigram-csv  build a token frequency table from a corpus CSV column`)
}

func runCreateCSV(args []string) error {
	fs := flag.NewFlagSet("create-csv", flag.ExitOnError)
	dir := fs.String("dir", "", "input directory containing .txt files")
	out := fs.String("out", "", "output corpus CSV path")
	fs.Parse(args)
	if *dir == "" || *out == "" {
		return fmt.Errorf("create-csv requires -dir and -out")
	}
	return corpus.CreateCSV(*dir, *out, nil)
}

func runStats(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dir := fs.String("dir", "", "corpus directory to analyze")
	fs.Parse(args)
	if *dir == "" {
		return fmt.Errorf("stats requires -dir")
	}
	stats, err := corpus.StatDir(*dir)
	if err != nil {
		return err
	}
	fmt.Printf("file count: %d\n", stats.FileCount)
	fmt.Printf("total size: %d bytes\n", stats.TotalSize)
	fmt.Printf("average file size: %.2f bytes\n", stats.AverageSize)
	return nil
}

// unigramFlags holds the flags shared by the unigram subcommands.
type unigramFlags struct {
	out     *string
	mode    *string
	pattern *string
	sortBy  *string
	topK    *int
}

func addUnigramFlags(fs *flag.FlagSet) unigramFlags {
	return unigramFlags{
		out:     fs.String("out", "", "output CSV path (token,count)"),
		mode:    fs.String("mode", "space", "tokenizer mode: space or regex"),
		pattern: fs.String("pattern", "", "custom token regex when mode=regex"),
		sortBy:  fs.String("sort-by", "freq", "sort order: freq or dev"),
		topK:    fs.Int("top-k", 0, "limit number of rows (0 = all)"),
	}
}

func (u unigramFlags) parse() (tokenizer.Mode, unigram.SortOrder, error) {
	mode, err := tokenizer.ParseMode(*u.mode)
	if err != nil {
		return 0, 0, err
	}
	order, err := unigram.ParseSortOrder(*u.sortBy)
	if err != nil {
		return 0, 0, err
	}
	return mode, order, nil
}

func runUnigram(args []string) error {
	fs := flag.NewFlagSet("unigram", flag.ExitOnError)
	dir := fs.String("dir", "", "input directory containing .txt files")
	uf := addUnigramFlags(fs)
	fs.Parse(args)
	if *dir == "" || *uf.out == "" {
		return fmt.Errorf("unigram requires -dir and -out")
	}
	mode, order, err := uf.parse()
	if err != nil {
		return err
	}

	files, err := filepath.Glob(filepath.Join(*dir, "*.txt"))
	if err != nil {
		return fmt.Errorf("globbing %s: %w", *dir, err)
	}
	texts := make([]string, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		texts = append(texts, string(data))
	}
	entries, err := unigram.Build(texts, mode, *uf.pattern, order, *uf.topK)
	if err != nil {
		return err
	}
	if err := unigram.WriteCSV(entries, *uf.out); err != nil {
		return err
	}
	fmt.Printf("unigram table saved to %s (%d entries)\n", *uf.out, len(entries))
	return nil
}

func runUnigramCSV(args []string) error {
	fs := flag.NewFlagSet("unigram-csv", flag.ExitOnError)
	in := fs.String("in", "", "input corpus CSV path")
	column := fs.String("content-column", "content", "name of the text column")
	uf := addUnigramFlags(fs)
	fs.Parse(args)
	if *in == "" || *uf.out == "" {
		return fmt.Errorf("unigram-csv requires -in and -out")
	}
	mode, order, err := uf.parse()
	if err != nil {
		return err
	}
	entries, err := unigram.BuildFromCSV(*in, *column, mode, *uf.pattern, order, *uf.topK)
	if err != nil {
		return err
	}
	if err := unigram.WriteCSV(entries, *uf.out); err != nil {
		return err
	}
	fmt.Printf("unigram table saved to %s (%d entries)\n", *uf.out, len(entries))
	return nil
}
