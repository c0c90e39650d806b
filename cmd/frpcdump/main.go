// Command frpcdump prints FRPC envelopes in readable form.
//
// It reads a single envelope from the input, or with -framed a sequence of
// envelopes each preceded by a 4-byte little-endian length. Calls to methods
// known from the configured schema are also checked against their signature.
package main

import (
	"bufio"
	"flag"
	"io"
	"log"
	"os"

	"github.com/anirudhraja/frpc"
	"github.com/anirudhraja/frpc/config"
)

var (
	inFlag     = flag.String("in", "", "input file (default stdin)")
	configFlag = flag.String("config", "", "TOML or YAML configuration file")
	jsonFlag   = flag.Bool("json", false, "print protobuf JSON instead of text")
	framedFlag = flag.Bool("framed", false, "input is a sequence of length-prefixed envelopes")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	log.SetPrefix("frpcdump: ")

	f := frpc.New()
	if *configFlag != "" {
		cfg, err := config.Load(*configFlag)
		if err != nil {
			log.Fatal(err)
		}
		if err := cfg.Apply(); err != nil {
			log.Fatal(err)
		}
		reg, err := cfg.Registry()
		if err != nil {
			log.Fatalf("failed to load schema: %v", err)
		}
		f = frpc.New(frpc.WithRegistry(reg), frpc.WithConfig(cfg.Codec))
	}

	var in io.Reader = os.Stdin
	if *inFlag != "" {
		file, err := os.Open(*inFlag)
		if err != nil {
			log.Fatal(err)
		}
		defer file.Close()
		in = file
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	d := &Dumper{frpc: f, json: *jsonFlag}
	if !*framedFlag {
		data, err := io.ReadAll(in)
		if err != nil {
			log.Fatal(err)
		}
		if err := d.Dump(data, out); err != nil {
			out.Flush()
			log.Fatal(err)
		}
		return
	}

	total := 0
	for {
		done, err := d.ServeFramed(in, out)
		if err != nil {
			out.Flush()
			log.Fatalf("envelope %d: %v", total+1, err)
		}
		if done {
			break
		}
		total++
	}
}
