//go:build ignore
// +build ignore

// Ledger load test: generates a synthetic order ledger and times engine
// runs over it.
//
// Usage:
//   go run scripts/ledger_loadtest.go \
//     --customers=50000 \
//     --runs=5 \
//     --write=/tmp/ledger.csv
//
// --write also saves the generated ledger so cmd/alerts can replay it.

package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/ignite/customer-alerts/internal/config"
	"github.com/ignite/customer-alerts/internal/contactlog"
	"github.com/ignite/customer-alerts/internal/datanorm"
	"github.com/ignite/customer-alerts/internal/engine"
)

var header = []string{"姓名", "手机号", "出售平台", "负责人", "货品名", "顾客付款日期", "收款额", "退款金额", "退货状态", "状态"}

var (
	items     = []string{"玫瑰精华", "山茶花面霜", "氨基酸洁面", "修护精华油", "防晒乳"}
	platforms = []string{"微信", "抖音", "小红书"}
	owners    = []string{"小王", "小李", "小张"}
)

func main() {
	customers := flag.Int("customers", 10000, "synthetic customers")
	runs := flag.Int("runs", 3, "timed engine runs")
	seed := flag.Int64("seed", 42, "random seed")
	write := flag.String("write", "", "also write the ledger as CSV")
	flag.Parse()

	today := datanorm.Day(time.Now())
	rng := rand.New(rand.NewSource(*seed))
	rows := generate(rng, *customers, today)
	log.Printf("generated %d rows for %d customers", len(rows), *customers)

	if *write != "" {
		if err := writeCSV(*write, rows); err != nil {
			log.Fatalf("write ledger: %v", err)
		}
		log.Printf("ledger written to %s", *write)
	}

	read, err := datanorm.ReadRecords(header, rows, today)
	if err != nil {
		log.Fatalf("read ledger: %v", err)
	}

	cfg := config.DefaultScoring()
	cfg.Normalize()

	var durations []time.Duration
	var last *engine.Result
	for i := 0; i < *runs; i++ {
		start := time.Now()
		last = engine.New(&cfg).Run(read.Rows, contactlog.Log{}, today)
		durations = append(durations, time.Since(start))
	}

	sort.Slice(durations, func(i, j int) bool { return durations[i] < durations[j] })
	fmt.Printf("runs:       %d\n", len(durations))
	fmt.Printf("min:        %s\n", durations[0])
	fmt.Printf("p50:        %s\n", durations[len(durations)/2])
	fmt.Printf("max:        %s\n", durations[len(durations)-1])
	fmt.Printf("throughput: %.0f rows/s\n", float64(len(rows))/durations[len(durations)/2].Seconds())
	fmt.Printf("worklist:   %d of %d customers\n", last.Summary.Worklist, last.Summary.Customers)
}

// generate draws a repeat-purchase history per customer: most buy every
// one to three months, some churn, and a few return often.
func generate(rng *rand.Rand, n int, today time.Time) [][]string {
	var rows [][]string
	for c := 0; c < n; c++ {
		phone := fmt.Sprintf("139%08d", c)
		name := fmt.Sprintf("客户%05d", c)
		platform := platforms[rng.Intn(len(platforms))]
		owner := owners[rng.Intn(len(owners))]
		cycle := 20 + rng.Intn(70)
		orders := 1 + rng.Intn(8)
		refundRate := 0.05
		if rng.Float64() < 0.1 {
			refundRate = 0.5
		}
		ago := rng.Intn(200)
		for o := 0; o < orders; o++ {
			day := today.AddDate(0, 0, -ago)
			gross := float64(100 + rng.Intn(900))
			row := []string{name, phone, platform, owner, items[rng.Intn(len(items))], day.Format("2006-01-02"),
				strconv.FormatFloat(gross, 'f', 0, 64), "", "", ""}
			if rng.Float64() < refundRate {
				row[7] = row[6]
				row[8] = "已退款"
			}
			if rng.Float64() < 0.02 {
				row[9] = "已取消"
				row[6] = "0"
			}
			rows = append(rows, row)
			ago += cycle/2 + rng.Intn(cycle)
		}
	}
	return rows
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return f.Close()
}
