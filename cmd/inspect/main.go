package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/docscore/calibration/internal/audit"
	"github.com/danielpatrickdp/docscore/calibration/internal/store"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to certificate SQLite db")
	method := flag.String("method", "", "list certificates for one method id")
	instance := flag.String("instance", "", "show single certificate detail")
	keyHex := flag.String("key", "", "hex signing key; enables the tamper check")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" || (*method == "" && *instance == "") {
		fmt.Fprintln(os.Stderr, "usage: inspect --db certs.db --method id [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --db certs.db --instance id [--key hex] [--json]")
		os.Exit(2)
	}

	st, err := store.Open(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if *instance != "" {
		if err := runDetailMode(st, *instance, *keyHex, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}
	if err := runListMode(st, *method, *jsonOut); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	InstanceID      string  `json:"instance_id"`
	NodeID          string  `json:"node_id"`
	CalibratedScore float64 `json:"calibrated_score"`
	IntrinsicScore  float64 `json:"intrinsic_score"`
	MinLayer        string  `json:"min_layer"`
	ConfigHash      string  `json:"config_hash"`
	Timestamp       string  `json:"timestamp"`
}

func runListMode(st *store.Store, methodID string, jsonOut bool) error {
	certs, err := st.ListCertificates(methodID)
	if err != nil {
		return err
	}

	rows := make([]listRow, 0, len(certs))
	for _, c := range certs {
		summary := audit.Analyze(c)
		rows = append(rows, listRow{
			InstanceID:      c.InstanceID,
			NodeID:          c.NodeID,
			CalibratedScore: c.CalibratedScore,
			IntrinsicScore:  c.IntrinsicScore,
			MinLayer:        summary.MinLayer,
			ConfigHash:      shortHash(c.ConfigHash),
			Timestamp:       c.Timestamp.Format("2006-01-02 15:04:05"),
		})
	}

	if jsonOut {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	fmt.Printf("%-38s| %-16s| %-10s| %-8s| %-8s| %s\n", "Instance", "Node", "Calibrated", "MinLayer", "Config", "Issued")
	for _, r := range rows {
		fmt.Printf("%-38s| %-16s| %-10.6f| %-8s| %-8s| %s\n",
			r.InstanceID, r.NodeID, r.CalibratedScore, r.MinLayer, r.ConfigHash, r.Timestamp)
	}
	fmt.Printf("\n%d certificates for method %s\n", len(rows), methodID)
	return nil
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(st *store.Store, instanceID, keyHex string, jsonOut bool) error {
	c, err := st.GetCertificate(instanceID)
	if err != nil {
		return err
	}

	report := audit.Validate(c)

	if jsonOut {
		out := map[string]any{
			"certificate": c,
			"report":      report,
			"summary":     audit.Analyze(c),
		}
		return json.NewEncoder(os.Stdout).Encode(out)
	}

	fmt.Printf("Instance:   %s\n", c.InstanceID)
	fmt.Printf("Method:     %s (%s) node %s\n", c.MethodID, c.Role, c.NodeID)
	fmt.Printf("Calibrated: %.6f (intrinsic %.6f)\n", c.CalibratedScore, c.IntrinsicScore)
	fmt.Printf("Formula:    %s\n", c.FusionFormula.Symbolic)
	fmt.Printf("Config:     %s\n", c.ConfigHash)
	if c.GraphHash != "" {
		fmt.Printf("Graph:      %s\n", c.GraphHash)
	}

	summary := audit.Analyze(c)
	fmt.Printf("\n%-8s| %-8s| %-8s| %-10s\n", "Layer", "Score", "Weight", "Effective")
	for _, l := range summary.Layers {
		fmt.Printf("%-8s| %-8.4f| %-8.4f| %-10.4f\n", l.Layer, l.Score, l.LinearWeight, l.EffectiveWeight)
	}

	fmt.Printf("\nValidation: %d errors, %d warnings\n", len(report.Errors), len(report.Warnings))
	for _, f := range report.Errors {
		fmt.Printf("  ERROR %s: %s\n", f.Check, f.Detail)
	}
	for _, f := range report.Warnings {
		fmt.Printf("  warn  %s: %s\n", f.Check, f.Detail)
	}

	if keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil {
			return fmt.Errorf("bad key: %w", err)
		}
		ok, err := audit.CheckTamper(c, key)
		if err != nil {
			return err
		}
		if ok {
			fmt.Println("Signature:  VALID")
		} else {
			fmt.Println("Signature:  INVALID (contents do not match signature)")
		}
	}
	return nil
}

// #endregion detail-mode
