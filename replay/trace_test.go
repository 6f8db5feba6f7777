package replay_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/flashsim/replay"
)

var _ = Describe("ParseTrace", func() {
	It("should parse data lines and skip comments", func() {
		records, err := replay.ParseTrace(strings.NewReader(
			"# header\n" +
				"# Format: arrival_time(us) device_id lba size_sectors read/write(1/0)\n" +
				"0 0 0 8 1\n" +
				"\n" +
				"30 0 8 8 1\n" +
				"60 0 16 4 0\n"))
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(HaveLen(3))

		Expect(records[0]).To(Equal(replay.TraceRecord{
			ArrivalUS: 0, Device: 0, LBA: 0, Sectors: 8, Write: false}))
		Expect(records[1].LBA).To(Equal(uint64(8)))
		Expect(records[2].Write).To(BeTrue())
	})

	It("should reject a line with the wrong field count", func() {
		_, err := replay.ParseTrace(strings.NewReader("0 0 0 8\n"))
		Expect(err).To(MatchError(ContainSubstring("trace line 1")))
	})

	It("should reject a non-numeric field with its position", func() {
		_, err := replay.ParseTrace(strings.NewReader(
			"0 0 0 8 1\n0 0 x 8 1\n"))
		Expect(err).To(MatchError(ContainSubstring("trace line 2")))
	})

	It("should reject an op code other than 0 or 1", func() {
		_, err := replay.ParseTrace(strings.NewReader("0 0 0 8 2\n"))
		Expect(err).To(MatchError(ContainSubstring("op must be 0 or 1")))
	})

	It("should accept an empty trace", func() {
		records, err := replay.ParseTrace(strings.NewReader("# nothing\n"))
		Expect(err).ToNot(HaveOccurred())
		Expect(records).To(BeEmpty())
	})
})
