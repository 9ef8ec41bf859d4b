package analyst

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

var supplyColumns = []string{
	"month", "supplier", "category", "delivery_rate", "lead_time_days",
	"order_value", "stockout_incident", "quality_score", "on_time",
}

// CriticalDeliveryRate is the delivery rate below which a month counts as
// a critical incident.
const CriticalDeliveryRate = 75.0

// SupplyRecord is one month/supplier/category line of the supply CSV.
type SupplyRecord struct {
	Month        string  `json:"month"`
	Supplier     string  `json:"supplier"`
	Category     string  `json:"category"`
	DeliveryRate float64 `json:"delivery_rate"`
	LeadTimeDays float64 `json:"lead_time_days"`
	OrderValue   float64 `json:"order_value"`
	Stockouts    int     `json:"stockout_incident"`
	QualityScore float64 `json:"quality_score"`
	OnTime       bool    `json:"on_time"`
}

// Supply is a set of supply-chain records.
type Supply struct {
	Records []SupplyRecord
}

// ReadSupply parses a supply-chain CSV.
func ReadSupply(r io.Reader) (*Supply, error) {
	rows, err := readRows(r, supplyColumns)
	if err != nil {
		return nil, err
	}
	out := &Supply{Records: make([]SupplyRecord, 0, len(rows))}
	for _, rw := range rows {
		rec := SupplyRecord{Month: rw.str("month"), Supplier: rw.str("supplier"), Category: rw.str("category")}
		if rec.DeliveryRate, err = rw.float("delivery_rate"); err != nil {
			return nil, err
		}
		if rec.LeadTimeDays, err = rw.float("lead_time_days"); err != nil {
			return nil, err
		}
		if rec.OrderValue, err = rw.float("order_value"); err != nil {
			return nil, err
		}
		if rec.Stockouts, err = rw.int("stockout_incident"); err != nil {
			return nil, err
		}
		if rec.QualityScore, err = rw.float("quality_score"); err != nil {
			return nil, err
		}
		onTime, err := rw.int("on_time")
		if err != nil {
			return nil, err
		}
		rec.OnTime = onTime != 0
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// LoadSupply reads the supply-chain CSV at path.
func LoadSupply(path string) (*Supply, error) {
	f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSupply(f)
}

// SupplyFilter keeps records whose supplier and category are in the given
// sets. An empty set keeps everything.
type SupplyFilter struct {
	Suppliers  []string
	Categories []string
}

// Filter returns the records matching f.
func (s *Supply) Filter(f SupplyFilter) *Supply {
	out := &Supply{}
	for _, r := range s.Records {
		if contains(f.Suppliers, r.Supplier) && contains(f.Categories, r.Category) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Len returns the number of records.
func (s *Supply) Len() int { return len(s.Records) }

// SupplyKPIs are the headline figures.
type SupplyKPIs struct {
	AvgDeliveryRate float64 `json:"avg_delivery_rate"`
	AvgLeadTime     float64 `json:"avg_lead_time_days"`
	Stockouts       int     `json:"stockouts"`
	OrderValue      float64 `json:"order_value"`
}

// KPIs averages delivery and lead time and sums stockouts and order value.
func (s *Supply) KPIs() SupplyKPIs {
	var k SupplyKPIs
	if len(s.Records) == 0 {
		return k
	}
	for _, r := range s.Records {
		k.AvgDeliveryRate += r.DeliveryRate
		k.AvgLeadTime += r.LeadTimeDays
		k.Stockouts += r.Stockouts
		k.OrderValue += r.OrderValue
	}
	n := float64(len(s.Records))
	k.AvgDeliveryRate /= n
	k.AvgLeadTime /= n
	return k
}

// SupplierSummary is the per-supplier performance line.
type SupplierSummary struct {
	Supplier        string  `json:"supplier"`
	AvgDeliveryRate float64 `json:"avg_delivery"`
	AvgLeadTime     float64 `json:"avg_lead_time"`
	Stockouts       int     `json:"total_stockouts"`
	AvgQuality      float64 `json:"avg_quality"`
	OrderValue      float64 `json:"total_value"`
	records         int
}

// BySupplier aggregates records per supplier, sorted by name.
func (s *Supply) BySupplier() []SupplierSummary {
	idx := map[string]*SupplierSummary{}
	for _, r := range s.Records {
		ss, ok := idx[r.Supplier]
		if !ok {
			ss = &SupplierSummary{Supplier: r.Supplier}
			idx[r.Supplier] = ss
		}
		ss.records++
		ss.AvgDeliveryRate += r.DeliveryRate
		ss.AvgLeadTime += r.LeadTimeDays
		ss.AvgQuality += r.QualityScore
		ss.Stockouts += r.Stockouts
		ss.OrderValue += r.OrderValue
	}
	out := make([]SupplierSummary, 0, len(idx))
	for _, ss := range idx {
		n := float64(ss.records)
		ss.AvgDeliveryRate /= n
		ss.AvgLeadTime /= n
		ss.AvgQuality /= n
		out = append(out, *ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Supplier < out[j].Supplier })
	return out
}

// Incident is a supplier month with a critical delivery rate.
type Incident struct {
	Supplier     string  `json:"supplier"`
	Month        string  `json:"month"`
	DeliveryRate float64 `json:"delivery_rate"`
}

// CriticalIncidents groups records below CriticalDeliveryRate by supplier
// and month, averaging the delivery rate.
func (s *Supply) CriticalIncidents() []Incident {
	type key struct{ supplier, month string }
	sums := map[key]float64{}
	counts := map[key]int{}
	for _, r := range s.Records {
		if r.DeliveryRate >= CriticalDeliveryRate {
			continue
		}
		k := key{r.Supplier, r.Month}
		sums[k] += r.DeliveryRate
		counts[k]++
	}
	out := make([]Incident, 0, len(sums))
	for k, sum := range sums {
		out = append(out, Incident{Supplier: k.supplier, Month: k.month, DeliveryRate: sum / float64(counts[k])})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Supplier != out[j].Supplier {
			return out[i].Supplier < out[j].Supplier
		}
		return out[i].Month < out[j].Month
	})
	return out
}

// SupplierTable renders BySupplier.
func (s *Supply) SupplierTable() string {
	t := &table{header: []string{"supplier", "avg_delivery", "avg_lead_time", "total_stockouts", "avg_quality", "total_value"}}
	for _, r := range s.BySupplier() {
		t.add(r.Supplier, fixed(r.AvgDeliveryRate, 2), fixed(r.AvgLeadTime, 2), fmt.Sprint(r.Stockouts),
			fixed(r.AvgQuality, 2), fixed(r.OrderValue, 2))
	}
	return t.String()
}

// IncidentTable renders CriticalIncidents.
func (s *Supply) IncidentTable() string {
	t := &table{header: []string{"supplier", "month", "delivery_rate"}}
	for _, in := range s.CriticalIncidents() {
		t.add(in.Supplier, in.Month, fixed(in.DeliveryRate, 1))
	}
	return t.String()
}

// Name implements Dataset.
func (s *Supply) Name() string { return "supply" }

// AnalysisPrompt implements Dataset.
func (s *Supply) AnalysisPrompt() (system, user string) {
	var sb strings.Builder
	sb.WriteString("Analyse this supplier performance data and give me the 5 most critical insights:\n\n")
	sb.WriteString("Supplier Summary:\n")
	sb.WriteString(s.SupplierTable())
	sb.WriteString("\n\nCritical Incidents (delivery rate below 75%):\n")
	sb.WriteString(s.IncidentTable())
	return SupplyAnalystSystem, sb.String()
}

// ChatContext implements Dataset.
func (s *Supply) ChatContext() (system, data string) {
	t := &table{header: []string{"supplier", "delivery_rate", "lead_time_days", "stockout_incident", "order_value"}}
	for _, r := range s.BySupplier() {
		t.add(r.Supplier, fixed(r.AvgDeliveryRate, 2), fixed(r.AvgLeadTime, 2), fmt.Sprint(r.Stockouts), fixed(r.OrderValue, 2))
	}
	return SupplyChatSystem, "Supply chain data:\n" + t.String()
}
