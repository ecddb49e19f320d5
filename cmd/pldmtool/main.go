// Package main implements pldmtool, a command-line inspector for
// firmware update packages built around this module's fwup parser,
// plus a "sim" subcommand (see sim.go) that drives an in-process FD
// responder against canned request bytes. Grounded on the teacher's
// cobra-based pedumper.go: a root command with a version subcommand
// and a dump subcommand carrying one bool flag per section of the
// thing being dumped.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/openbmc/go-pldm/fwup"
	"github.com/openbmc/go-pldm/internal/plog"
)

var (
	verbose       bool
	wantHeader    bool
	wantDeviceIDs bool
	wantDownIDs   bool
	wantComps     bool
	wantSig       bool
	wantAll       bool
)

func prettyPrint(buf []byte) string {
	var out bytes.Buffer
	if err := json.Indent(&out, buf, "", "\t"); err != nil {
		return string(buf)
	}
	return out.String()
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func dumpPackage(filename string, cmd *cobra.Command, logger plog.Logger) {
	log := plog.NewHelper(logger)
	log.Infof("processing %s", filename)

	pf, err := fwup.LoadPackageFile(filename, logger)
	if err != nil {
		log.Errorf("open %s: %v", filename, err)
		return
	}
	defer pf.Close()

	all, _ := cmd.Flags().GetBool("all")

	if h, _ := cmd.Flags().GetBool("header"); h || all {
		b, _ := json.Marshal(pf.Header)
		fmt.Println(prettyPrint(b))
	}

	if d, _ := cmd.Flags().GetBool("deviceids"); d || all {
		var records []fwup.DeviceIDRecord
		for rec := range pf.DeviceIDRecords() {
			records = append(records, rec)
		}
		b, _ := json.Marshal(records)
		fmt.Println(prettyPrint(b))
	}

	if d, _ := cmd.Flags().GetBool("downstream"); d || all {
		var records []fwup.DeviceIDRecord
		for rec := range pf.DownstreamDeviceIDRecords() {
			records = append(records, rec)
		}
		b, _ := json.Marshal(records)
		fmt.Println(prettyPrint(b))
	}

	if c, _ := cmd.Flags().GetBool("components"); c || all {
		var comps []fwup.ComponentImageInfo
		for info := range pf.ComponentImageInfos() {
			comps = append(comps, info)
		}
		b, _ := json.Marshal(comps)
		fmt.Println(prettyPrint(b))
	}

	if s, _ := cmd.Flags().GetBool("signature"); s || all {
		sig, err := pf.Signature()
		if err != nil {
			log.Warnf("signature: %v", err)
		} else {
			b, _ := json.Marshal(sig)
			fmt.Println(prettyPrint(b))
		}
	}
}

func dump(cmd *cobra.Command, args []string) {
	path := args[0]

	var logger plog.Logger
	if verbose {
		logger = plog.NewFilter(plog.NewStdLogger(os.Stderr), plog.LevelDebug)
	} else {
		logger = plog.NewFilter(plog.NewStdLogger(os.Stderr), plog.LevelWarn)
	}

	if !isDirectory(path) {
		dumpPackage(path, cmd, logger)
		return
	}

	var files []string
	filepath.Walk(path, func(p string, f os.FileInfo, err error) error {
		if err == nil && !f.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	for _, f := range files {
		dumpPackage(f, cmd, logger)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "pldmtool",
		Short: "Inspect PLDM firmware update packages",
		Long:  "pldmtool parses and dumps DSP0267 firmware update packages",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("pldmtool version 0.1.0")
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump <file-or-dir>",
		Short: "Dump a firmware update package",
		Long:  "Parses one or more firmware update packages and prints the requested sections as JSON",
		Args:  cobra.ExactArgs(1),
		Run:   dump,
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	dumpCmd.Flags().BoolVar(&wantHeader, "header", false, "dump the package header")
	dumpCmd.Flags().BoolVar(&wantDeviceIDs, "deviceids", false, "dump firmware device ID records")
	dumpCmd.Flags().BoolVar(&wantDownIDs, "downstream", false, "dump downstream device ID records")
	dumpCmd.Flags().BoolVar(&wantComps, "components", false, "dump component image info records")
	dumpCmd.Flags().BoolVar(&wantSig, "signature", false, "dump the package's PKCS7 signature, if present")
	dumpCmd.Flags().BoolVar(&wantAll, "all", false, "dump every section")

	rootCmd.AddCommand(versionCmd, dumpCmd, newSimCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
