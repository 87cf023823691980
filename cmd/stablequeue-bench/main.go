// Command stablequeue-bench runs an ordered job/result scenario against
// stablequeue and reports throughput and queue metrics.
//
// Usage:
//
//	stablequeue-bench [-config scenario.yml]
package main

import (
	"flag"
	"log"

	"github.com/ygrebnov/stablequeue/metrics"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	cfgPath := flag.String("config", "", "path to a YAML scenario (default: embedded)")
	flag.Parse()

	s, err := loadScenario(*cfgPath)
	if err != nil {
		log.Fatalf("scenario load failed: %v", err)
	}
	log.Printf("running %d batches of %d jobs on %d workers (work delay %s, capacity %d)",
		s.Batches, s.BatchSize, s.Workers, s.WorkDelay, s.Capacity)

	r, err := run(s, metrics.NewBasicProvider())
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	r.print(log.Printf)
}
