package workload_test

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flashsim/workload"
)

// tinyModel is a 2-layer model small enough that traces stay a few dozen
// lines: each matrix is exactly one 4 KiB page.
func tinyModel() workload.ModelSpec {
	return workload.ModelSpec{
		Name:            "Tiny-Test",
		SizeBytes:       2 * 6 * 4096,
		NumLayers:       2,
		HiddenDim:       64,
		WeightsPerLayer: 6 * 4096,
	}
}

func tinySSD() workload.SSDConfig {
	return workload.SSDConfig{
		CapacityBytes: 1 << 30,
		PageSizeBytes: 4096,
		PagesPerBlock: 16,
	}
}

type traceLine struct {
	ts      uint64
	device  uint64
	lba     uint64
	sectors uint64
	op      uint64
}

func parseTrace(data string) []traceLine {
	var lines []traceLine
	sc := bufio.NewScanner(strings.NewReader(data))
	for sc.Scan() {
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		Expect(fields).To(HaveLen(5), "line %q", text)

		var vals [5]uint64
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, 64)
			Expect(err).ToNot(HaveOccurred(), "line %q", text)
			vals[i] = v
		}
		lines = append(lines, traceLine{vals[0], vals[1], vals[2], vals[3], vals[4]})
	}
	return lines
}

var _ = Describe("Trace emitter", func() {
	var gen *workload.Generator

	cfg := workload.InferenceConfig{
		NumTokens:             3,
		PrefillLength:         4,
		BatchSize:             1,
		ComputeTimePerTokenUS: 1000,
	}

	BeforeEach(func() {
		var err error
		gen, err = workload.NewGenerator(tinyModel(), cfg, tinySSD())
		Expect(err).ToNot(HaveOccurred())
	})

	Describe("compact mode", func() {
		It("should emit one read per page-sized chunk", func() {
			var buf bytes.Buffer
			Expect(gen.WriteCompactTrace(&buf)).To(Succeed())

			lines := parseTrace(buf.String())
			// 12 matrices, one 4 KiB page (8 sectors) each.
			Expect(lines).To(HaveLen(12))
			Expect(lines[0]).To(Equal(traceLine{0, 0, 0, 8, 1}))
			for i, l := range lines {
				Expect(l.ts).To(Equal(uint64(i * 30)))
				Expect(l.lba).To(Equal(uint64(i * 8)))
				Expect(l.op).To(Equal(uint64(1)))
				Expect(l.device).To(Equal(uint64(0)))
			}
		})

		It("should name the model and the relay meaning in the header", func() {
			var buf bytes.Buffer
			Expect(gen.WriteCompactTrace(&buf)).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("# Model: Tiny-Test"))
			Expect(buf.String()).To(ContainSubstring("Relay_Count"))
			Expect(buf.String()).To(ContainSubstring("# Format: arrival_time(us)"))
		})
	})

	Describe("decode mode", func() {
		It("should emit one traversal per token with monotone timestamps", func() {
			var buf bytes.Buffer
			Expect(gen.WriteDecodeTrace(&buf)).To(Succeed())

			lines := parseTrace(buf.String())
			Expect(lines).To(HaveLen(12 * 3))
			for i := 1; i < len(lines); i++ {
				Expect(lines[i].ts).To(BeNumerically(">=", lines[i-1].ts))
			}
		})

		It("should equal N time-shifted copies of the compact trace", func() {
			var compact, decode bytes.Buffer
			Expect(gen.WriteCompactTrace(&compact)).To(Succeed())
			Expect(gen.WriteDecodeTrace(&decode)).To(Succeed())

			compactLines := parseTrace(compact.String())
			decodeLines := parseTrace(decode.String())

			// Compact duration: all reads plus the trailing compute tick.
			duration := uint64(len(compactLines))*30 + 1000

			for i, l := range decodeLines {
				want := compactLines[i%len(compactLines)]
				shift := uint64(i/len(compactLines)) * duration
				Expect(l.ts).To(Equal(want.ts+shift), "line %d", i)
				Expect(l.lba).To(Equal(want.lba))
				Expect(l.sectors).To(Equal(want.sectors))
			}
		})

		It("should name the token count in the header", func() {
			var buf bytes.Buffer
			Expect(gen.WriteDecodeTrace(&buf)).To(Succeed())
			Expect(buf.String()).To(ContainSubstring("# Tokens to generate: 3"))
		})
	})

	Describe("full mode", func() {
		It("should put the prefill compute burst between the phases", func() {
			var buf bytes.Buffer
			Expect(gen.WriteFullTrace(&buf)).To(Succeed())

			lines := parseTrace(buf.String())
			Expect(lines).To(HaveLen(12 * 4)) // prefill + 3 decode tokens

			// Prefill ends at 12 reads * 30 us; its compute burst is
			// 1000 * 4 * 0.5 = 2000 us.
			prefillEnd := uint64(12 * 30)
			Expect(lines[12].ts).To(Equal(prefillEnd + 2000))
			Expect(buf.String()).To(ContainSubstring("# PREFILL PHASE START"))
			Expect(buf.String()).To(ContainSubstring("# DECODE PHASE START"))
		})
	})

	Describe("truncated final chunk", func() {
		It("should split a matrix that is not page-aligned", func() {
			// 3 sectors per matrix on a 2-sector page: chunks of 2 and 1.
			model := workload.ModelSpec{
				Name:            "Ragged-Test",
				SizeBytes:       2 * 6 * 1536,
				NumLayers:       2,
				HiddenDim:       16,
				WeightsPerLayer: 6 * 1536,
			}
			ssd := workload.SSDConfig{
				CapacityBytes: 1 << 20,
				PageSizeBytes: 1024,
				PagesPerBlock: 4,
			}
			g, err := workload.NewGenerator(model, cfg, ssd)
			Expect(err).ToNot(HaveOccurred())

			var buf bytes.Buffer
			Expect(g.WriteCompactTrace(&buf)).To(Succeed())

			lines := parseTrace(buf.String())
			Expect(lines).To(HaveLen(12 * 2))
			Expect(lines[0].sectors).To(Equal(uint64(2)))
			Expect(lines[1].sectors).To(Equal(uint64(1)))
			Expect(lines[1].lba).To(Equal(uint64(2)))
			Expect(lines[2].lba).To(Equal(uint64(3)))
		})
	})

	Describe("configurable inter-read delay", func() {
		It("should honor a custom pacing", func() {
			g, err := workload.NewGenerator(
				tinyModel(), cfg, tinySSD(), workload.WithInterReadDelayUS(7))
			Expect(err).ToNot(HaveOccurred())

			var buf bytes.Buffer
			Expect(g.WriteCompactTrace(&buf)).To(Succeed())

			lines := parseTrace(buf.String())
			Expect(lines[1].ts).To(Equal(uint64(7)))
			Expect(lines[11].ts).To(Equal(uint64(77)))
		})
	})

	Describe("trace types", func() {
		It("should parse the three mode names", func() {
			for _, s := range []string{"compact", "decode", "full"} {
				tt, err := workload.ParseTraceType(s)
				Expect(err).ToNot(HaveOccurred())
				Expect(string(tt)).To(Equal(s))
			}
		})

		It("should reject anything else", func() {
			_, err := workload.ParseTraceType("sparse")
			Expect(err).To(MatchError(ContainSubstring("unknown trace type")))
		})
	})
})

var _ = Describe("Llama2-7B on 4 KiB pages", func() {
	It("should match the reference layout and first read", func() {
		ssd := workload.SSDConfig{
			CapacityBytes: 256 * workload.GiB,
			PageSizeBytes: 4096,
			PagesPerBlock: 256,
		}
		cfg := workload.DefaultInferenceConfig()

		g, err := workload.NewGenerator(workload.Llama2_7B(), cfg, ssd)
		Expect(err).ToNot(HaveOccurred())

		blocks := g.WeightBlocks()
		Expect(blocks).To(HaveLen(192))

		// weights_per_layer/6 = 39,146,837 B -> 76,458 sectors per matrix.
		Expect(blocks[0].LBAStart).To(Equal(uint64(0)))
		Expect(blocks[0].LBAEnd).To(Equal(uint64(76457)))
		Expect(blocks[191].LBAEnd).To(Equal(uint64(192*76458 - 1)))

		var buf bytes.Buffer
		Expect(g.WriteCompactTrace(&buf)).To(Succeed())

		sc := bufio.NewScanner(strings.NewReader(buf.String()))
		var firstData string
		for sc.Scan() {
			if !strings.HasPrefix(sc.Text(), "#") {
				firstData = sc.Text()
				break
			}
		}
		Expect(firstData).To(Equal("0 0 0 8 1"))
	})
})

var _ = Describe("Workload statistics", func() {
	It("should report the traversal volume and block pressure", func() {
		cfg := workload.InferenceConfig{
			NumTokens:             10,
			PrefillLength:         4,
			BatchSize:             1,
			ComputeTimePerTokenUS: 1000,
		}
		g, err := workload.NewGenerator(tinyModel(), cfg, tinySSD())
		Expect(err).ToNot(HaveOccurred())

		s := g.Stats()
		Expect(s.Model).To(Equal("Tiny-Test"))
		Expect(s.WeightBlocks).To(Equal(12))
		Expect(s.SectorsPerToken).To(Equal(uint64(12 * 8)))
		Expect(s.BytesPerToken).To(Equal(uint64(12 * 4096)))
		Expect(s.TotalBytes).To(Equal(uint64(12 * 4096 * 10)))

		// 16 pages * 4096 B = 128 sectors per flash block; 96 sectors of
		// layout fit in one block.
		Expect(s.BlocksTouched).To(Equal(uint64(1)))
		Expect(s.AvgReadsPerBlock).To(Equal(float64(12 * 8 * 10)))
	})
})
