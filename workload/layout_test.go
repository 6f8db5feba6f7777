package workload_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flashsim/workload"
)

var _ = Describe("Weight layout", func() {
	newGen := func(m workload.ModelSpec) *workload.Generator {
		g, err := workload.NewGenerator(
			m, workload.DefaultInferenceConfig(), workload.DefaultSSDConfig())
		Expect(err).ToNot(HaveOccurred())
		return g
	}

	Describe("determinism", func() {
		It("should produce identical layouts across runs", func() {
			a := newGen(workload.Llama2_13B()).WeightBlocks()
			b := newGen(workload.Llama2_13B()).WeightBlocks()
			Expect(a).To(Equal(b))
		})
	})

	Describe("contiguity", func() {
		It("should start at LBA 0 and leave no gaps", func() {
			for _, key := range workload.ModelKeys() {
				model, err := workload.ModelByKey(key)
				Expect(err).ToNot(HaveOccurred())

				blocks := newGen(model).WeightBlocks()
				Expect(blocks[0].LBAStart).To(Equal(uint64(0)))
				for i := 1; i < len(blocks); i++ {
					Expect(blocks[i].LBAStart).To(Equal(blocks[i-1].LBAEnd+1),
						"model %s block %d", model.Name, i)
				}
			}
		})
	})

	Describe("ordering", func() {
		It("should be layer-major with the fixed matrix order", func() {
			blocks := newGen(workload.Llama2_7B()).WeightBlocks()
			Expect(blocks).To(HaveLen(32 * 6))

			wantNames := []string{"Q_proj", "K_proj", "V_proj", "O_proj", "FFN1", "FFN2"}
			for i, wb := range blocks {
				Expect(wb.LayerID).To(Equal(uint32(i / 6)))
				Expect(wb.MatrixName).To(Equal(wantNames[i%6]))
			}
		})
	})

	Describe("coverage", func() {
		It("should cover the model up to integer-division loss", func() {
			model := workload.Llama2_70B()
			blocks := newGen(model).WeightBlocks()

			var covered uint64
			for _, wb := range blocks {
				covered += wb.Sectors() * workload.SectorSize
			}

			matrices := uint64(model.NumLayers) * 6
			exact := matrices * (model.WeightsPerLayer / 6)
			Expect(covered).To(BeNumerically("<=", exact))
			// At most one sector of truncation per matrix.
			Expect(covered).To(BeNumerically(">", exact-matrices*workload.SectorSize))
		})
	})

	Describe("catalogue", func() {
		It("should resolve every CLI key", func() {
			Expect(workload.ModelKeys()).To(Equal(
				[]string{"llama13b", "llama70b", "llama7b", "opt6.7b"}))
		})

		It("should reject unknown models", func() {
			_, err := workload.ModelByKey("gpt5")
			Expect(err).To(MatchError(ContainSubstring("unknown model")))
		})

		It("should size Llama2-7B at 7 GiB over 32 layers", func() {
			m := workload.Llama2_7B()
			Expect(m.SizeBytes).To(Equal(uint64(7516192768)))
			Expect(m.WeightsPerLayer).To(Equal(m.SizeBytes / 32))
			Expect(m.HiddenDim).To(Equal(uint32(4096)))
		})
	})

	Describe("validation", func() {
		It("should reject a page size that is not sector-aligned", func() {
			ssd := workload.DefaultSSDConfig()
			ssd.PageSizeBytes = 1000
			_, err := workload.NewGenerator(
				workload.Llama2_7B(), workload.DefaultInferenceConfig(), ssd)
			Expect(err).To(HaveOccurred())
		})
	})
})
