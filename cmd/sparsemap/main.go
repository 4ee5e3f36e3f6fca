// Command sparsemap prints the data/hole layout of files.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/sparsefs/sparse"
)

func main() {
	points := flag.Bool("points", false, "print raw transition points instead of ranges")
	flag.Parse()

	log.SetFlags(0)

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [-points] file...\n", os.Args[0])
		os.Exit(2)
	}

	for _, name := range flag.Args() {
		if err := oneFile(name, *points); err != nil {
			log.Fatalf("%s: %s", name, err)
		}
	}
}

func oneFile(name string, points bool) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()

	fmt.Printf("%s:\n", name)

	if points {
		return printPoints(file)
	}
	return printRanges(file)
}

func printPoints(file *os.File) error {
	it := sparse.NewIter(file)
	for {
		p, err := it.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		fmt.Printf("  %-4s at %d\n", p.Kind, p.Offset)
	}
}

func printRanges(file *os.File) error {
	ranges, err := sparse.Ranges(file)
	if err != nil {
		return err
	}

	var dataTotal, holeTotal int64
	for _, r := range ranges {
		fmt.Printf("  %-4s [%d, %d) %s\n", r.Kind, r.Start, r.End, humanize.IBytes(uint64(r.Len())))
		if r.Kind == sparse.Data {
			dataTotal += r.Len()
		} else {
			holeTotal += r.Len()
		}
	}

	apparent, allocated, err := sparse.SizeStats(file)
	if err != nil {
		return err
	}

	fmt.Printf("  data  %s\n", humanize.IBytes(uint64(dataTotal)))
	fmt.Printf("  holes %s\n", humanize.IBytes(uint64(holeTotal)))
	fmt.Printf("  total %s (%s allocated on disk)\n", humanize.IBytes(uint64(apparent)), humanize.IBytes(uint64(allocated)))
	return nil
}
