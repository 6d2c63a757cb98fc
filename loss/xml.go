package loss

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

// xmlConfig is the persisted configuration of a loss term. Learned state
// lives with the network, not here.
type xmlConfig struct {
	XMLName        xml.Name
	Regularization xmlRegularization `xml:"Regularization"`
	Reduction      string            `xml:"Reduction"`
}

type xmlRegularization struct {
	Type   string `xml:"Type,attr"`
	Weight string `xml:"RegularizationWeight"`
}

func (li *LossIndex) config(element string) xmlConfig {
	return xmlConfig{
		XMLName: xml.Name{Local: element},
		Regularization: xmlRegularization{
			Type:   li.regularizationMethod.String(),
			Weight: strconv.FormatFloat(li.regularizationWeight, 'g', -1, 64),
		},
		Reduction: li.reduction.String(),
	}
}

func (li *LossIndex) toXML(element string) ([]byte, error) {
	out, err := xml.MarshalIndent(li.config(element), "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}

func (li *LossIndex) writeXML(enc *xml.Encoder, element string) error {
	enc.Indent("", "  ")
	if err := enc.Encode(li.config(element)); err != nil {
		return err
	}
	return enc.Flush()
}

// fromXML loads configuration into li. Nothing is changed on error.
func (li *LossIndex) fromXML(element string, data []byte) error {
	var cfg xmlConfig
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return err
	}
	if cfg.XMLName.Local != element {
		return fmt.Errorf("%s: got <%s> document", element, cfg.XMLName.Local)
	}
	method, err := ParseRegularizationMethod(cfg.Regularization.Type)
	if err != nil {
		return fmt.Errorf("%s: %w", element, err)
	}
	weight := DefaultRegularizationWeight
	if cfg.Regularization.Weight != "" {
		weight, err = strconv.ParseFloat(cfg.Regularization.Weight, 64)
		if err != nil {
			return fmt.Errorf("%s: regularization weight: %w", element, err)
		}
		if weight < 0 {
			return fmt.Errorf("%s: negative regularization weight %v", element, weight)
		}
	}
	reduction, err := ParseReduction(cfg.Reduction)
	if err != nil {
		return fmt.Errorf("%s: %w", element, err)
	}
	li.regularizationMethod = method
	li.regularizationWeight = weight
	li.reduction = reduction
	return nil
}
