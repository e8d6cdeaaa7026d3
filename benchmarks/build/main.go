// Command build measures the cost of each transaction building stage.
package main

import (
	"context"
	"flag"
	"fmt"
	"runtime"
	"sort"
	"time"

	"github.com/lamden/golampy/core"
	"github.com/lamden/golampy/core/types"
	"github.com/lamden/golampy/kwargs"
	"github.com/lamden/golampy/pow"
	"github.com/lamden/golampy/wallet"
)

type result struct {
	name  string
	ops   int
	perUS float64
	perS  float64
}

func bench(n int, fn func()) time.Duration {
	start := time.Now()
	for i := 0; i < n; i++ {
		fn()
	}
	return time.Since(start)
}

func perOpUS(d time.Duration, n int) float64 {
	return float64(d.Microseconds()) / float64(n)
}

func perSecOps(d time.Duration, n int) float64 {
	return float64(n) / d.Seconds()
}

func measure(name string, n int, fn func()) result {
	d := bench(n, fn)
	return result{name: name, ops: n, perUS: perOpUS(d, n), perS: perSecOps(d, n)}
}

func main() {
	signOps := flag.Int("sign-ops", 5000, "number of sign and verify operations")
	powOps := flag.Int("pow-ops", 50, "number of proof of work searches")
	buildOps := flag.Int("build-ops", 50, "number of complete transaction builds")
	batchSize := flag.Int("batch", 4*runtime.NumCPU(), "transactions per parallel batch build")
	flag.Parse()

	if *signOps <= 0 || *powOps <= 0 || *buildOps <= 0 || *batchSize <= 0 {
		panic("operation counts must be > 0")
	}

	w, err := wallet.Generate(nil)
	if err != nil {
		panic(err)
	}
	var processor types.Processor
	args := kwargs.NewArgs().
		Add("to", "a5ba7e1dbb03ffaa4e5cb8b5ecf6b0d4b8b1ab32d4a8a7fa3cb4bcd3e7d1a7b1").
		Add("amount", kwargs.MustFixedPoint("100.5"))
	raw, err := core.BuildTransaction(w, "currency", "transfer", args, 500, processor, 0)
	if err != nil {
		panic(err)
	}
	sig := w.Sign(raw)
	out := make([]result, 0, 6)

	out = append(out, measure("sign", *signOps, func() {
		w.Sign(raw)
	}))
	out = append(out, measure("verify", *signOps, func() {
		if !w.Verify(raw, sig[:]) {
			panic("verify failed")
		}
	}))
	out = append(out, measure("kwargs", *signOps, func() {
		if _, err := kwargs.Encode(args); err != nil {
			panic(err)
		}
	}))
	out = append(out, measure("pow", *powOps, func() {
		pow.Find(raw)
	}))
	out = append(out, measure("build", *buildOps, func() {
		if _, err := core.BuildTransaction(w, "currency", "transfer", args, 500, processor, 0); err != nil {
			panic(err)
		}
	}))

	calls := make([]core.Call, *batchSize)
	for i := range calls {
		calls[i] = core.Call{Contract: "currency", Function: "transfer", Args: args, Stamps: 500}
	}
	builder := new(core.Builder)
	start := time.Now()
	if _, err := builder.BuildBatch(context.Background(), w, processor, 0, calls); err != nil {
		panic(err)
	}
	d := time.Since(start)
	out = append(out, result{name: "batch", ops: *batchSize, perUS: perOpUS(d, *batchSize), perS: perSecOps(d, *batchSize)})

	fmt.Printf("Transaction build benchmark on this machine (%d CPUs)\n", runtime.NumCPU())
	fmt.Println("- Local work only; no node round trips")
	fmt.Printf("%-8s %8s %12s %12s\n", "Stage", "ops", "us/op", "ops/s")
	for _, r := range out {
		fmt.Printf("%-8s %8d %12.2f %12.0f\n", r.name, r.ops, r.perUS, r.perS)
	}

	byCost := append([]result(nil), out...)
	sort.Slice(byCost, func(i, j int) bool { return byCost[i].perUS > byCost[j].perUS })
	fmt.Print("\nCost rank (slow -> fast): ")
	for i, r := range byCost {
		if i > 0 {
			fmt.Print(" > ")
		}
		fmt.Print(r.name)
	}
	fmt.Println()
}
