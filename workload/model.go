// Package workload lays an LLM's weight matrices across the SSD's logical
// address space and emits representative read traces for the simulator.
package workload

import (
	"fmt"
	"sort"
)

// GiB is 1024^3 bytes.
const GiB = 1 << 30

// ModelSpec describes one LLM whose weights are streamed from flash.
// Sizes assume INT8 quantization.
type ModelSpec struct {
	Name            string
	SizeBytes       uint64
	NumLayers       uint32
	HiddenDim       uint32
	WeightsPerLayer uint64
}

// Llama2_7B returns the 7 GiB, 32-layer Llama-2 configuration.
func Llama2_7B() ModelSpec {
	return ModelSpec{
		Name:            "Llama2-7B",
		SizeBytes:       7 * GiB,
		NumLayers:       32,
		HiddenDim:       4096,
		WeightsPerLayer: 7 * GiB / 32,
	}
}

// Llama2_13B returns the 13 GiB, 40-layer Llama-2 configuration.
func Llama2_13B() ModelSpec {
	return ModelSpec{
		Name:            "Llama2-13B",
		SizeBytes:       13 * GiB,
		NumLayers:       40,
		HiddenDim:       5120,
		WeightsPerLayer: 13 * GiB / 40,
	}
}

// Llama2_70B returns the 70 GiB, 80-layer Llama-2 configuration.
func Llama2_70B() ModelSpec {
	return ModelSpec{
		Name:            "Llama2-70B",
		SizeBytes:       70 * GiB,
		NumLayers:       80,
		HiddenDim:       8192,
		WeightsPerLayer: 70 * GiB / 80,
	}
}

// OPT_6_7B returns the 7 GiB, 32-layer OPT configuration.
func OPT_6_7B() ModelSpec {
	return ModelSpec{
		Name:            "OPT-6.7B",
		SizeBytes:       7 * GiB,
		NumLayers:       32,
		HiddenDim:       4096,
		WeightsPerLayer: 7 * GiB / 32,
	}
}

var modelCatalogue = map[string]func() ModelSpec{
	"llama7b":  Llama2_7B,
	"llama13b": Llama2_13B,
	"llama70b": Llama2_70B,
	"opt6.7b":  OPT_6_7B,
}

// ModelByKey looks a model up by its CLI key.
func ModelByKey(key string) (ModelSpec, error) {
	f, ok := modelCatalogue[key]
	if !ok {
		return ModelSpec{}, fmt.Errorf("unknown model: %s", key)
	}
	return f(), nil
}

// ModelKeys returns the supported CLI keys in sorted order.
func ModelKeys() []string {
	keys := make([]string, 0, len(modelCatalogue))
	for k := range modelCatalogue {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// InferenceConfig describes the inference run a trace represents.
type InferenceConfig struct {
	// NumTokens is the number of tokens the decode phase generates.
	// Default: 10000.
	NumTokens uint32

	// PrefillLength is the prompt length processed by the prefill phase.
	// Default: 512.
	PrefillLength uint32

	// BatchSize is always 1 for edge inference.
	BatchSize uint32

	// ComputeTimePerTokenUS is the compute delay between weight
	// traversals, in microseconds. Default: 1000 (1 ms).
	ComputeTimePerTokenUS float64
}

// DefaultInferenceConfig returns the default inference configuration.
func DefaultInferenceConfig() InferenceConfig {
	return InferenceConfig{
		NumTokens:             10000,
		PrefillLength:         512,
		BatchSize:             1,
		ComputeTimePerTokenUS: 1000.0,
	}
}
