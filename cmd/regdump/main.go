// Command regdump prints the IOMMU register map with live values, field
// layouts and write policies. Writes can be applied through the native
// interface first with -poke, which makes the tool a quick way to check
// how a value settles against the field policies.
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/term"

	"github.com/tinyrange/iommureg"
	"github.com/tinyrange/iommureg/internal/regmap"
)

type poke struct {
	addr  uint16
	value uint64
}

func parsePoke(s string) (poke, error) {
	addrStr, valStr, ok := strings.Cut(s, "=")
	if !ok {
		return poke{}, fmt.Errorf("expected offset=value, got %q", s)
	}
	addr, err := strconv.ParseUint(strings.TrimSpace(addrStr), 0, 13)
	if err != nil {
		return poke{}, fmt.Errorf("bad offset %q: %w", addrStr, err)
	}
	val, err := strconv.ParseUint(strings.TrimSpace(valStr), 0, 64)
	if err != nil {
		return poke{}, fmt.Errorf("bad value %q: %w", valStr, err)
	}
	return poke{addr: uint16(addr), value: val}, nil
}

func main() {
	profilePath := flag.String("profile", "", "yaml profile applied on top of the defaults")
	noColor := flag.Bool("no-color", false, "disable ANSI colors")

	var pokes []poke
	flag.Func("poke", "write offset=value through the native interface before dumping (repeatable)", func(s string) error {
		p, err := parsePoke(s)
		if err != nil {
			return err
		}
		pokes = append(pokes, p)
		return nil
	})
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	profile := iommureg.DefaultProfile()
	if *profilePath != "" {
		p, err := iommureg.LoadProfile(*profilePath)
		if err != nil {
			logger.Error("load profile", "error", err)
			os.Exit(1)
		}
		profile = p
	}

	model, err := iommureg.NewWithProfile(profile)
	if err != nil {
		logger.Error("build model", "error", err)
		os.Exit(1)
	}

	for _, pk := range pokes {
		rsp := model.Native.Write(pk.addr, pk.value, 0xff)
		if rsp.Error {
			logger.Error("poke rejected", "offset", fmt.Sprintf("0x%x", pk.addr))
			os.Exit(1)
		}
	}

	color := !*noColor && term.IsTerminal(int(os.Stdout.Fd()))
	dump(os.Stdout, model, color)
}

func policyStyle(p regmap.Policy) ansi.Style {
	switch p {
	case regmap.RO:
		return ansi.Style{}.Faint()
	case regmap.RW:
		return ansi.Style{}.ForegroundColor(ansi.Green)
	case regmap.RW1C:
		return ansi.Style{}.ForegroundColor(ansi.Yellow)
	case regmap.WARL:
		return ansi.Style{}.ForegroundColor(ansi.Cyan)
	default:
		return ansi.Style{}
	}
}

func dump(w io.Writer, model *iommureg.Model, color bool) {
	styled := func(p regmap.Policy) string {
		if !color {
			return p.String()
		}
		return policyStyle(p).Styled(p.String())
	}

	for index := 0; index < model.Map.Len(); index++ {
		reg, _ := model.Map.At(index)
		value, err := model.Bank.Read(index)
		if err != nil {
			continue
		}

		fmt.Fprintf(w, "0x%04x  %-12s 0x%016x  wmask=0x%02x\n", reg.Offset, reg.Name, value, reg.WriteMask)
		for _, f := range reg.Fields {
			span := fmt.Sprintf("[%d:%d]", f.Hi, f.Lo)
			fmt.Fprintf(w, "        %-12s %-8s value=0x%-16x reset=0x%-8x %s\n",
				f.Name, span, f.Extract(value), f.Reset, styled(f.Policy))
		}
	}
}
