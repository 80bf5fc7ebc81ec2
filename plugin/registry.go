package plugin

import "fmt"

// Transformers is a global map of SeriesTransformer plugins.
var Transformers = map[string]func() SeriesTransformer{
	"moving_avg": func() SeriesTransformer {
		return &MovingAvgPlugin{}
	},
	"pi_error": func() SeriesTransformer {
		return NewPiErrorTransformer(0)
	},
}

func TransformerLookup(name string) (SeriesTransformer, error) {
	factory, ok := Transformers[name]
	if !ok {
		return nil, fmt.Errorf("unknown transformer: %s", name)
	}
	return factory(), nil
}
