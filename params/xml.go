package params

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ConfigError reports a malformed attribute value in a parameter document.
type ConfigError struct {
	Attribute string
	Value     string
	Err       error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("flash parameter %s: bad value %q: %v",
		e.Attribute, e.Value, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// rootElement is the document element that wraps the parameter set.
const rootElement = "Flash_Parameter_Set"

// WriteXML serializes the parameter set as an element-per-attribute XML
// document. Attributes appear in a fixed order so that serializing the same
// parameter set twice yields byte-identical output.
func (p *FlashParameters) WriteXML(w io.Writer) error {
	ew := &errWriter{w: w}

	ew.printf("<%s>\n", rootElement)
	for _, a := range p.attributes() {
		ew.printf("\t<%s>%s</%s>\n", a.name, a.value, a.name)
	}
	ew.printf("</%s>\n", rootElement)

	return ew.err
}

type attribute struct {
	name  string
	value string
}

func (p *FlashParameters) attributes() []attribute {
	return []attribute{
		{"Flash_Technology", p.Technology.String()},
		{"CMD_Suspension_Support", p.CMDSuspensionSupport.String()},
		{"Page_Read_Latency_LSB", formatTime(p.PageReadLatencyLSB)},
		{"Page_Read_Latency_CSB", formatTime(p.PageReadLatencyCSB)},
		{"Page_Read_Latency_MSB", formatTime(p.PageReadLatencyMSB)},
		{"Page_Program_Latency_LSB", formatTime(p.PageProgramLatencyLSB)},
		{"Page_Program_Latency_CSB", formatTime(p.PageProgramLatencyCSB)},
		{"Page_Program_Latency_MSB", formatTime(p.PageProgramLatencyMSB)},
		{"Block_Erase_Latency", formatTime(p.BlockEraseLatency)},
		{"Block_PE_Cycles_Limit", formatUint32(p.BlockPECyclesLimit)},
		{"Suspend_Erase_Time", formatTime(p.SuspendEraseTime)},
		{"Suspend_Program_Time", formatTime(p.SuspendProgramTime)},
		{"Die_No_Per_Chip", formatUint32(p.DieNoPerChip)},
		{"Plane_No_Per_Die", formatUint32(p.PlaneNoPerDie)},
		{"Block_No_Per_Plane", formatUint32(p.BlockNoPerPlane)},
		{"Page_No_Per_Block", formatUint32(p.PageNoPerBlock)},
		{"Page_Capacity", formatUint32(p.PageCapacity)},
		{"Page_Metadat_Capacity", formatUint32(p.PageMetadataCapacity)},
		{"IFP_Enabled", formatBool(p.IFPEnabled)},
		{"IFP_Dot_Product_Latency", formatTime(p.IFPDotProductLatency)},
		{"IFP_ECC_Decode_Latency", formatTime(p.IFPECCDecodeLatency)},
		{"IFP_ECC_Retry_Latency", formatTime(p.IFPECCRetryLatency)},
		{"IFP_ECC_Max_Retries", formatUint32(p.IFPECCMaxRetries)},
		{"Read_Reclaim_Threshold", formatUint32(p.ReadReclaimThreshold)},
		{"ECC_Base_RBER", formatFloat(p.ECCBaseRBER)},
		{"ECC_Read_Count_Factor", formatFloat(p.ECCReadCountFactor)},
		{"ECC_PE_Cycle_Factor", formatFloat(p.ECCPECycleFactor)},
		{"ECC_Retention_Factor", formatFloat(p.ECCRetentionFactor)},
		{"ECC_Correction_Capability", formatUint32(p.ECCCorrectionCapability)},
		{"ECC_Codeword_Size", formatUint32(p.ECCCodewordSize)},
		{"IFP_Aggregation_Mode", formatUint32(p.IFPAggregationMode)},
	}
}

func formatTime(t SimTime) string   { return strconv.FormatUint(uint64(t), 10) }
func formatUint32(v uint32) string  { return strconv.FormatUint(uint64(v), 10) }
func formatFloat(v float64) string  { return strconv.FormatFloat(v, 'g', -1, 64) }
func formatBool(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...any) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

// ReadXML overlays the parameter set with the attributes found in an XML
// document. Child order does not matter and unknown child elements are
// ignored. A malformed value is reported as a *ConfigError naming the
// attribute.
func (p *FlashParameters) ReadXML(r io.Reader) error {
	dec := xml.NewDecoder(r)

	if err := skipToRoot(dec); err != nil {
		return err
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return errors.New("flash parameter document: unexpected end of document")
		}
		if err != nil {
			return fmt.Errorf("flash parameter document: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			var val string
			if err := dec.DecodeElement(&val, &t); err != nil {
				return fmt.Errorf("flash parameter document: %w", err)
			}
			if err := p.setAttribute(t.Name.Local, strings.TrimSpace(val)); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == rootElement {
				return nil
			}
		}
	}
}

func skipToRoot(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return fmt.Errorf("flash parameter document: no <%s> element", rootElement)
		}
		if err != nil {
			return fmt.Errorf("flash parameter document: %w", err)
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Local != rootElement {
				return fmt.Errorf("flash parameter document: unexpected root element <%s>", se.Name.Local)
			}
			return nil
		}
	}
}

func (p *FlashParameters) setAttribute(name, val string) error {
	switch name {
	case "Flash_Technology":
		return parseEnum(name, val, &p.Technology, map[string]FlashTechnology{
			"SLC": SLC, "MLC": MLC, "TLC": TLC,
		})
	case "CMD_Suspension_Support":
		return parseEnum(name, val, &p.CMDSuspensionSupport, map[string]CMDSuspensionMode{
			"NONE":          SuspensionNone,
			"ERASE":         SuspensionErase,
			"PROGRAM":       SuspensionProgram,
			"PROGRAM_ERASE": SuspensionProgramErase,
		})
	case "Page_Read_Latency_LSB":
		return parseTime(name, val, &p.PageReadLatencyLSB)
	case "Page_Read_Latency_CSB":
		return parseTime(name, val, &p.PageReadLatencyCSB)
	case "Page_Read_Latency_MSB":
		return parseTime(name, val, &p.PageReadLatencyMSB)
	case "Page_Program_Latency_LSB":
		return parseTime(name, val, &p.PageProgramLatencyLSB)
	case "Page_Program_Latency_CSB":
		return parseTime(name, val, &p.PageProgramLatencyCSB)
	case "Page_Program_Latency_MSB":
		return parseTime(name, val, &p.PageProgramLatencyMSB)
	case "Block_Erase_Latency":
		return parseTime(name, val, &p.BlockEraseLatency)
	case "Block_PE_Cycles_Limit":
		return parseUint32(name, val, &p.BlockPECyclesLimit)
	case "Suspend_Erase_Time":
		return parseTime(name, val, &p.SuspendEraseTime)
	case "Suspend_Program_Time":
		return parseTime(name, val, &p.SuspendProgramTime)
	case "Die_No_Per_Chip":
		return parseUint32(name, val, &p.DieNoPerChip)
	case "Plane_No_Per_Die":
		return parseUint32(name, val, &p.PlaneNoPerDie)
	case "Block_No_Per_Plane":
		return parseUint32(name, val, &p.BlockNoPerPlane)
	case "Page_No_Per_Block":
		return parseUint32(name, val, &p.PageNoPerBlock)
	case "Page_Capacity":
		return parseUint32(name, val, &p.PageCapacity)
	case "Page_Metadat_Capacity":
		return parseUint32(name, val, &p.PageMetadataCapacity)
	case "IFP_Enabled":
		return parseBool(name, val, &p.IFPEnabled)
	case "IFP_Dot_Product_Latency":
		return parseTime(name, val, &p.IFPDotProductLatency)
	case "IFP_ECC_Decode_Latency":
		return parseTime(name, val, &p.IFPECCDecodeLatency)
	case "IFP_ECC_Retry_Latency":
		return parseTime(name, val, &p.IFPECCRetryLatency)
	case "IFP_ECC_Max_Retries":
		return parseUint32(name, val, &p.IFPECCMaxRetries)
	case "Read_Reclaim_Threshold":
		return parseUint32(name, val, &p.ReadReclaimThreshold)
	case "ECC_Base_RBER":
		return parseFloat(name, val, &p.ECCBaseRBER)
	case "ECC_Read_Count_Factor":
		return parseFloat(name, val, &p.ECCReadCountFactor)
	case "ECC_PE_Cycle_Factor":
		return parseFloat(name, val, &p.ECCPECycleFactor)
	case "ECC_Retention_Factor":
		return parseFloat(name, val, &p.ECCRetentionFactor)
	case "ECC_Correction_Capability":
		return parseUint32(name, val, &p.ECCCorrectionCapability)
	case "ECC_Codeword_Size":
		return parseUint32(name, val, &p.ECCCodewordSize)
	case "IFP_Aggregation_Mode":
		return parseUint32(name, val, &p.IFPAggregationMode)
	}

	// Unknown attributes are ignored.
	return nil
}

func parseEnum[T any](name, val string, dst *T, values map[string]T) error {
	v, ok := values[strings.ToUpper(val)]
	if !ok {
		return &ConfigError{name, val, errors.New("unknown enum value")}
	}
	*dst = v
	return nil
}

func parseBool(name, val string, dst *bool) error {
	switch strings.ToUpper(val) {
	case "TRUE":
		*dst = true
	case "FALSE":
		*dst = false
	default:
		return &ConfigError{name, val, errors.New("must be true or false")}
	}
	return nil
}

func parseTime(name, val string, dst *SimTime) error {
	v, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return &ConfigError{name, val, err}
	}
	*dst = SimTime(v)
	return nil
}

func parseUint32(name, val string, dst *uint32) error {
	v, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return &ConfigError{name, val, err}
	}
	*dst = uint32(v)
	return nil
}

func parseFloat(name, val string, dst *float64) error {
	v, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return &ConfigError{name, val, err}
	}
	*dst = v
	return nil
}
