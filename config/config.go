package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/swdee/go-pnideval/annotation"
	"github.com/swdee/go-pnideval/filter"
	"github.com/swdee/go-pnideval/match"
	"github.com/swdee/go-pnideval/merge"
	"github.com/swdee/go-pnideval/region"
	"github.com/swdee/go-pnideval/stats"
)

// ErrInvalid is returned when a configuration value is out of range
var ErrInvalid = errors.New("invalid configuration")

// envPrefix is prepended to every environment override
const envPrefix = "PNIDEVAL_"

// Class subsets selectable for evaluation
const (
	SubsetTotal = "total"
	SubsetLarge = "large"
	SubsetSmall = "small"
)

type Config struct {
	Classes  ClassesConfig  `yaml:"classes"`
	Evaluate EvaluateConfig `yaml:"evaluate"`
	Merge    MergeConfig    `yaml:"merge"`
}

type ClassesConfig struct {
	File      string `yaml:"file"`       // class list with "id|name" lines
	LargeFile string `yaml:"large_file"` // class names counted as large symbols
	Subset    string `yaml:"subset"`     // total, large or small
}

type EvaluateConfig struct {
	Format          string             `yaml:"format"`       // txt, xml or json
	ScoreColumn     bool               `yaml:"score_column"` // tenth txt column is a score
	IoU             float64            `yaml:"iou"`
	ClassIoU        map[string]float64 `yaml:"class_iou"`
	ScoreThreshold  float64            `yaml:"score_threshold"`
	ClassScore      map[string]float64 `yaml:"class_score"`
	NMS             float64            `yaml:"nms"`
	SmallBoxOverlap float64            `yaml:"small_box_overlap"`
	Recognition     bool               `yaml:"recognition"`
	RecognitionMode string             `yaml:"recognition_mode"` // gt or tp
	CompareAngle    bool               `yaml:"compare_angle"`
	SymbolOnly      bool               `yaml:"symbol_only"`
	Aggregation     string             `yaml:"aggregation"` // pooled or averaged
	Workers         int                `yaml:"workers"`
	APMaxDetections int                `yaml:"ap_max_dets"`
	TextMatches     bool               `yaml:"text_matches"` // write the text match dump
}

type MergeConfig struct {
	IoF              float64  `yaml:"iof"`
	YGap             float64  `yaml:"y_gap"`
	HorizontalIoF    float64  `yaml:"horizontal_iof"`
	RequireSameAngle bool     `yaml:"require_same_angle"`
	Classes          []string `yaml:"classes"` // empty means the text class family
}

// Default returns the configuration used when no file is given
func Default() *Config {

	fp := filter.DefaultParams()
	mp := merge.DefaultParams()

	return &Config{
		Classes: ClassesConfig{
			Subset: SubsetTotal,
		},
		Evaluate: EvaluateConfig{
			Format:          string(annotation.FormatXML),
			IoU:             match.DefaultThreshold,
			ScoreThreshold:  fp.ScoreThreshold,
			NMS:             fp.NMSThreshold,
			SmallBoxOverlap: fp.SmallBoxOverlap,
			Recognition:     true,
			RecognitionMode: stats.ScoreGroundTruth.String(),
			SymbolOnly:      true,
			Aggregation:     stats.Pooled.String(),
			Workers:         4,
			APMaxDetections: 100,
		},
		Merge: MergeConfig{
			IoF:              mp.IoFThreshold,
			YGap:             mp.YGapThreshold,
			HorizontalIoF:    mp.HorizontalIoFThreshold,
			RequireSameAngle: mp.RequireSameAngle,
		},
	}
}

// Load reads the YAML file over the defaults, when file is empty only the
// defaults are used, then applies PNIDEVAL_* environment overrides
func Load(file string) (*Config, error) {

	cfg := Default()

	if file != "" {
		data, err := os.ReadFile(file)

		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file %s: %w", file, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyEnv overrides scalar settings from the environment
func (c *Config) applyEnv() error {

	var errs []error

	envString("CLASSES_FILE", &c.Classes.File)
	envString("CLASSES_LARGE_FILE", &c.Classes.LargeFile)
	envString("CLASSES_SUBSET", &c.Classes.Subset)

	envString("FORMAT", &c.Evaluate.Format)
	envString("RECOGNITION_MODE", &c.Evaluate.RecognitionMode)
	envString("AGGREGATION", &c.Evaluate.Aggregation)

	errs = append(errs,
		envFloat("IOU", &c.Evaluate.IoU),
		envFloat("SCORE_THRESHOLD", &c.Evaluate.ScoreThreshold),
		envFloat("NMS", &c.Evaluate.NMS),
		envFloat("SMALL_BOX_OVERLAP", &c.Evaluate.SmallBoxOverlap),
		envInt("WORKERS", &c.Evaluate.Workers),
		envInt("AP_MAX_DETS", &c.Evaluate.APMaxDetections),
		envBool("COMPARE_ANGLE", &c.Evaluate.CompareAngle),
		envBool("SYMBOL_ONLY", &c.Evaluate.SymbolOnly),
		envFloat("MERGE_IOF", &c.Merge.IoF),
		envFloat("MERGE_Y_GAP", &c.Merge.YGap),
		envFloat("MERGE_HORIZONTAL_IOF", &c.Merge.HorizontalIoF),
	)

	return errors.Join(errs...)
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(envPrefix + key); ok && v != "" {
		*dst = v
	}
}

func envFloat(key string, dst *float64) error {

	v, ok := os.LookupEnv(envPrefix + key)

	if !ok || v == "" {
		return nil
	}

	f, err := strconv.ParseFloat(v, 64)

	if err != nil {
		return fmt.Errorf("%w: %s%s=%q is not a number", ErrInvalid, envPrefix, key, v)
	}

	*dst = f
	return nil
}

func envInt(key string, dst *int) error {

	v, ok := os.LookupEnv(envPrefix + key)

	if !ok || v == "" {
		return nil
	}

	n, err := strconv.Atoi(v)

	if err != nil {
		return fmt.Errorf("%w: %s%s=%q is not an integer", ErrInvalid, envPrefix, key, v)
	}

	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {

	v, ok := os.LookupEnv(envPrefix + key)

	if !ok || v == "" {
		return nil
	}

	b, err := strconv.ParseBool(v)

	if err != nil {
		return fmt.Errorf("%w: %s%s=%q is not a boolean", ErrInvalid, envPrefix, key, v)
	}

	*dst = b
	return nil
}

// Validate checks thresholds and mode names
func (c *Config) Validate() error {

	var errs []error

	unit := func(name string, v float64) {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%w: %s %v outside [0,1]", ErrInvalid, name, v))
		}
	}

	unit("evaluate.iou", c.Evaluate.IoU)
	unit("evaluate.score_threshold", c.Evaluate.ScoreThreshold)
	unit("evaluate.nms", c.Evaluate.NMS)
	unit("evaluate.small_box_overlap", c.Evaluate.SmallBoxOverlap)
	unit("merge.iof", c.Merge.IoF)
	unit("merge.horizontal_iof", c.Merge.HorizontalIoF)

	for name, v := range c.Evaluate.ClassIoU {
		unit("evaluate.class_iou."+name, v)
	}

	for name, v := range c.Evaluate.ClassScore {
		unit("evaluate.class_score."+name, v)
	}

	if c.Merge.YGap < 0 {
		errs = append(errs, fmt.Errorf("%w: merge.y_gap %v is negative", ErrInvalid, c.Merge.YGap))
	}

	if c.Evaluate.Workers < 1 {
		errs = append(errs, fmt.Errorf("%w: evaluate.workers must be at least 1", ErrInvalid))
	}

	if c.Evaluate.APMaxDetections < 0 {
		errs = append(errs, fmt.Errorf("%w: evaluate.ap_max_dets is negative", ErrInvalid))
	}

	if _, err := annotation.ParseFormat(c.Evaluate.Format); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}

	if _, err := stats.ParseRecognitionMode(c.Evaluate.RecognitionMode); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}

	if _, err := stats.ParseAggregation(c.Evaluate.Aggregation); err != nil {
		errs = append(errs, fmt.Errorf("%w: %v", ErrInvalid, err))
	}

	switch strings.ToLower(c.Classes.Subset) {
	case SubsetTotal, SubsetLarge, SubsetSmall, "":
	default:
		errs = append(errs, fmt.Errorf("%w: unknown class subset %q", ErrInvalid, c.Classes.Subset))
	}

	return errors.Join(errs...)
}

// LoadClasses loads the class file and narrows it to the configured subset
func (c *Config) LoadClasses() (*region.ClassMap, error) {

	if c.Classes.File == "" {
		return nil, region.ErrNoClassMap
	}

	all, err := region.LoadClassMap(c.Classes.File)

	if err != nil {
		return nil, err
	}

	subset := strings.ToLower(c.Classes.Subset)

	if subset == SubsetTotal || subset == "" {
		return all, nil
	}

	if c.Classes.LargeFile == "" {
		return nil, fmt.Errorf("%w: class subset %q needs classes.large_file", ErrInvalid, subset)
	}

	large, err := loadNames(c.Classes.LargeFile, all)

	if err != nil {
		return nil, err
	}

	if subset == SubsetLarge {
		return large, nil
	}

	return all.Without(large), nil
}

// loadNames reads a class file and resolves its names against all
func loadNames(file string, all *region.ClassMap) (*region.ClassMap, error) {

	listed, err := region.LoadClassMap(file)

	if err != nil {
		return nil, err
	}

	names := make([]string, 0, listed.Len())

	for _, id := range listed.IDs() {
		names = append(names, listed.Name(id))
	}

	sub, unknown := all.Subset(names)

	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: unknown classes in %s: %s", ErrInvalid, file, strings.Join(unknown, ", "))
	}

	return sub, nil
}

// resolve converts per class name settings into class id settings
func resolve(byName map[string]float64, classes *region.ClassMap) (map[region.ClassID]float64, error) {

	if len(byName) == 0 {
		return nil, nil
	}

	res := make(map[region.ClassID]float64, len(byName))

	for name, v := range byName {
		id, ok := classes.ID(name)

		if !ok {
			return nil, fmt.Errorf("%w: unknown class %q", ErrInvalid, name)
		}

		res[id] = v
	}

	return res, nil
}

// MatchPolicy returns the IoU threshold policy for the classes
func (c *Config) MatchPolicy(classes *region.ClassMap) (match.ThresholdPolicy, error) {

	perClass, err := resolve(c.Evaluate.ClassIoU, classes)

	if err != nil {
		return match.ThresholdPolicy{}, err
	}

	return match.ThresholdPolicy{Default: c.Evaluate.IoU, PerClass: perClass}, nil
}

// FilterParams returns the detection filtering for the classes
func (c *Config) FilterParams(classes *region.ClassMap) (filter.Params, error) {

	perClass, err := resolve(c.Evaluate.ClassScore, classes)

	if err != nil {
		return filter.Params{}, err
	}

	return filter.Params{
		ScoreThreshold:  c.Evaluate.ScoreThreshold,
		PerClassScore:   perClass,
		NMSThreshold:    c.Evaluate.NMS,
		SmallBoxOverlap: c.Evaluate.SmallBoxOverlap,
	}, nil
}

// MergeParams returns the consolidation parameters, restricted to the
// configured classes or the text class family when none are listed
func (c *Config) MergeParams(classes *region.ClassMap) (merge.Params, error) {

	p := merge.Params{
		IoFThreshold:           c.Merge.IoF,
		YGapThreshold:          c.Merge.YGap,
		HorizontalIoFThreshold: c.Merge.HorizontalIoF,
		RequireSameAngle:       c.Merge.RequireSameAngle,
	}

	if len(c.Merge.Classes) == 0 {
		p.Classes = classes.TextClasses()
		return p, nil
	}

	sub, unknown := classes.Subset(c.Merge.Classes)

	if len(unknown) > 0 {
		return merge.Params{}, fmt.Errorf("%w: unknown merge classes: %s", ErrInvalid, strings.Join(unknown, ", "))
	}

	p.Classes = make(map[region.ClassID]bool, sub.Len())

	for _, id := range sub.IDs() {
		p.Classes[id] = true
	}

	return p, nil
}
