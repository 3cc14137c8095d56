package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/docscore/calibration/internal/replay"
	"github.com/danielpatrickdp/docscore/calibration/internal/store"
)

// #region main

func main() {
	fixturePath := flag.String("fixture", "", "path to calibration fixture JSON")
	dbPath := flag.String("db", "", "optionally persist issued certificates to this SQLite db")
	flag.Parse()

	if *fixturePath == "" {
		fmt.Fprintln(os.Stderr, "usage: replay --fixture path/to/fixture.json [--db path/to/certs.db]")
		os.Exit(2)
	}

	f, err := replay.LoadFixture(*fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		os.Exit(2)
	}

	results, err := replay.Replay(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(2)
	}

	if *dbPath != "" {
		if err := persist(*dbPath, results); err != nil {
			fmt.Fprintf(os.Stderr, "persist: %v\n", err)
			os.Exit(2)
		}
	}

	os.Exit(printResults(f.Description, results))
}

// #endregion main

// #region persist

func persist(dbPath string, results []replay.Result) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()
	for _, r := range results {
		if err := st.SaveCertificate(r.Certificate); err != nil {
			return err
		}
	}
	return nil
}

// #endregion persist

// #region output

// printResults outputs a comparison table and returns the exit code.
func printResults(description string, results []replay.Result) int {
	if description != "" {
		fmt.Println(description)
	}
	fmt.Printf("%-20s| %-10s| %-8s| %s\n", "Node", "Calibrated", "Result", "Reason")
	fmt.Printf("%-20s+%-10s+%-8s+%s\n", "--------------------", "-----------", "---------", "--------")

	for _, r := range results {
		status := "PASS"
		if !r.Pass {
			status = "FAIL"
		}
		fmt.Printf("%-20s| %-10.6f| %-8s| %s\n", r.NodeID, r.Certificate.CalibratedScore, status, r.Reason)
	}

	s := replay.Summarize(results)
	fmt.Printf("\nSummary: %d total, %d pass, %d fail\n", s.Total, s.Passes, s.Fails)
	if s.Fails > 0 {
		return 1
	}
	return 0
}

// #endregion output
