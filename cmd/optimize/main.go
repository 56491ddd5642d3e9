package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/arbor/config"
)

// evalLog appends one CSV row per evaluation: index, loss, raw parameters.
type evalLog struct {
	file *os.File
	w    *csv.Writer
}

func newEvalLog(path string, params *ParamVector) (*evalLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	header := []string{"eval", "loss"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &evalLog{file: f, w: w}, nil
}

func (l *evalLog) record(eval int, loss float64, raw []float64) {
	row := []string{strconv.Itoa(eval), fmt.Sprintf("%.6f", loss)}
	for _, v := range raw {
		row = append(row, fmt.Sprintf("%.6f", v))
	}
	l.w.Write(row)
	l.w.Flush()
}

func (l *evalLog) close() {
	l.w.Flush()
	l.file.Close()
}

func main() {
	configPath := flag.String("config", "", "Base config YAML file (empty = use defaults)")
	genotype := flag.String("genotype", "fuji", "Genotype to grow during evaluation")
	steps := flag.Int("steps", 365, "Growth steps per simulation run")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 200, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	targetLeafArea := flag.Float64("target-leaf-area", 150, "Target total leaf area at end of run")
	targetMetamers := flag.Float64("target-metamers", 100, "Target active metamer count at end of run")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	if *outputDir == "" {
		log.Fatal("--output is required")
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		log.Fatalf("failed to create output directory: %v", err)
	}
	if err := config.Init(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	baseCfg := config.Cfg()
	if _, ok := baseCfg.Genotype(*genotype); !ok {
		log.Fatalf("unknown genotype %q", *genotype)
	}

	params := NewParamVector()
	evaluator := NewFitnessEvaluator(params, baseCfg, *genotype, *steps, *seeds, *targetLeafArea, *targetMetamers)

	evals, err := newEvalLog(filepath.Join(*outputDir, "optimize_log.csv"), params)
	if err != nil {
		log.Fatalf("failed to create eval log: %v", err)
	}
	defer evals.close()

	bestLoss := math.Inf(1)
	var bestParams []float64
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			loss := evaluator.Evaluate(x)
			raw := params.Denormalize(x)
			if loss < bestLoss {
				bestLoss = loss
				bestParams = append([]float64(nil), raw...)
			}
			evals.record(evaluator.EvalCount(), loss, raw)
			log.Printf("eval %d/%d: loss=%.4f best=%.4f",
				evaluator.EvalCount(), *maxEvals, loss, bestLoss)
			return loss
		},
	}

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(params.Dim())/2.0)
	}
	log.Printf("calibrating %d parameters: genotype=%s population=%d seeds=%d steps=%d",
		params.Dim(), *genotype, popSize, *seeds, *steps)

	result, err := optimize.Minimize(problem,
		params.Normalize(params.DefaultVector()),
		&optimize.Settings{FuncEvaluations: *maxEvals},
		&optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize},
	)
	if err != nil {
		log.Printf("optimization ended: %v", err)
	}
	// The best evaluation is not necessarily the final one.
	if bestParams == nil {
		bestParams = params.Denormalize(result.X)
	}

	log.Printf("done after %d evaluations, best loss %.4f", evaluator.EvalCount(), bestLoss)
	for i, spec := range params.Specs {
		log.Printf("  %s = %.6f", spec.Name, bestParams[i])
	}

	bestCfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to reload config: %v", err)
	}
	params.ApplyToConfig(bestCfg, bestParams)
	outPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(outPath); err != nil {
		log.Fatalf("failed to write best config: %v", err)
	}
	log.Printf("best config written to %s", outPath)
}
