package basic

import (
	"time"

	"github.com/antibyte/c64basic/pkg/configuration"
)

// Options tunes one interpreter instance.
type Options struct {
	PrintZoneWidth int           // columns per PRINT zone selected by ","
	MaxGosubDepth  int           // GOSUB nesting limit
	MaxForDepth    int           // FOR nesting limit
	MaxWait        time.Duration // upper bound for a single WAIT
	TokenCacheSize int           // statements kept tokenised
	RandomSeed     int64         // 0 seeds from the clock
}

// DefaultOptions returns the built-in defaults.
func DefaultOptions() Options {
	return Options{
		PrintZoneWidth: 16,
		MaxGosubDepth:  MaxGosubDepth,
		MaxForDepth:    MaxForLoopDepth,
		MaxWait:        60 * time.Second,
		TokenCacheSize: 512,
	}
}

// OptionsFromConfig reads the [Interpreter] section, falling back to the defaults.
func OptionsFromConfig() Options {
	def := DefaultOptions()
	return Options{
		PrintZoneWidth: configuration.GetInt("Interpreter", "print_zone_width", def.PrintZoneWidth),
		MaxGosubDepth:  configuration.GetInt("Interpreter", "max_gosub_depth", def.MaxGosubDepth),
		MaxForDepth:    configuration.GetInt("Interpreter", "max_for_depth", def.MaxForDepth),
		MaxWait:        configuration.GetDuration("Interpreter", "max_wait", def.MaxWait),
		TokenCacheSize: configuration.GetInt("Interpreter", "token_cache_size", def.TokenCacheSize),
		RandomSeed:     int64(configuration.GetInt("Interpreter", "random_seed", 0)),
	}
}

func (o Options) normalized() Options {
	def := DefaultOptions()
	if o.PrintZoneWidth <= 0 {
		o.PrintZoneWidth = def.PrintZoneWidth
	}
	if o.MaxGosubDepth <= 0 {
		o.MaxGosubDepth = def.MaxGosubDepth
	}
	if o.MaxForDepth <= 0 {
		o.MaxForDepth = def.MaxForDepth
	}
	if o.MaxWait <= 0 {
		o.MaxWait = def.MaxWait
	}
	if o.TokenCacheSize <= 0 {
		o.TokenCacheSize = def.TokenCacheSize
	}
	return o
}
