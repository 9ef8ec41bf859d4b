package analyst

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

var salesColumns = []string{"month", "region", "product", "revenue", "units_sold", "target"}

// SalesRecord is one month/region/product line of the sales CSV.
type SalesRecord struct {
	Month     string  `json:"month"`
	Region    string  `json:"region"`
	Product   string  `json:"product"`
	Revenue   float64 `json:"revenue"`
	UnitsSold int     `json:"units_sold"`
	Target    float64 `json:"target"`
}

// Sales is a set of sales records.
type Sales struct {
	Records []SalesRecord
}

// ReadSales parses a sales CSV.
func ReadSales(r io.Reader) (*Sales, error) {
	rows, err := readRows(r, salesColumns)
	if err != nil {
		return nil, err
	}
	out := &Sales{Records: make([]SalesRecord, 0, len(rows))}
	for _, rw := range rows {
		rec := SalesRecord{Month: rw.str("month"), Region: rw.str("region"), Product: rw.str("product")}
		if rec.Revenue, err = rw.float("revenue"); err != nil {
			return nil, err
		}
		if rec.UnitsSold, err = rw.int("units_sold"); err != nil {
			return nil, err
		}
		if rec.Target, err = rw.float("target"); err != nil {
			return nil, err
		}
		out.Records = append(out.Records, rec)
	}
	return out, nil
}

// LoadSales reads the sales CSV at path.
func LoadSales(path string) (*Sales, error) {
	f, err := openCSV(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadSales(f)
}

// SalesFilter keeps records whose fields are in the given sets. An empty
// set keeps everything.
type SalesFilter struct {
	Regions  []string
	Products []string
	Months   []string
}

// Filter returns the records matching f.
func (s *Sales) Filter(f SalesFilter) *Sales {
	out := &Sales{}
	for _, r := range s.Records {
		if contains(f.Regions, r.Region) && contains(f.Products, r.Product) && contains(f.Months, r.Month) {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Len returns the number of records.
func (s *Sales) Len() int { return len(s.Records) }

// SalesKPIs are the headline totals.
type SalesKPIs struct {
	Revenue    float64 `json:"revenue"`
	Units      int     `json:"units"`
	Target     float64 `json:"target"`
	Attainment float64 `json:"attainment_pct"`
}

// KPIs sums revenue, units and target. Attainment is zero without a target.
func (s *Sales) KPIs() SalesKPIs {
	var k SalesKPIs
	for _, r := range s.Records {
		k.Revenue += r.Revenue
		k.Units += r.UnitsSold
		k.Target += r.Target
	}
	if k.Target > 0 {
		k.Attainment = k.Revenue / k.Target * 100
	}
	return k
}

// RegionSummary is the per-region performance line.
type RegionSummary struct {
	Region     string  `json:"region"`
	Revenue    float64 `json:"revenue"`
	Target     float64 `json:"target"`
	Units      int     `json:"units"`
	Attainment float64 `json:"attainment_pct"`
}

// ByRegion aggregates records per region, sorted by region name.
func (s *Sales) ByRegion() []RegionSummary {
	idx := map[string]*RegionSummary{}
	for _, r := range s.Records {
		rs, ok := idx[r.Region]
		if !ok {
			rs = &RegionSummary{Region: r.Region}
			idx[r.Region] = rs
		}
		rs.Revenue += r.Revenue
		rs.Target += r.Target
		rs.Units += r.UnitsSold
	}
	out := make([]RegionSummary, 0, len(idx))
	for _, rs := range idx {
		if rs.Target > 0 {
			rs.Attainment = rs.Revenue / rs.Target * 100
		}
		out = append(out, *rs)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Region < out[j].Region })
	return out
}

// Total is a named revenue sum.
type Total struct {
	Key   string  `json:"key"`
	Value float64 `json:"value"`
}

func sumBy(records []SalesRecord, key func(SalesRecord) string) []Total {
	idx := map[string]float64{}
	for _, r := range records {
		idx[key(r)] += r.Revenue
	}
	out := make([]Total, 0, len(idx))
	for k, v := range idx {
		out = append(out, Total{Key: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ByMonth returns revenue per month in month order.
func (s *Sales) ByMonth() []Total {
	return sumBy(s.Records, func(r SalesRecord) string { return r.Month })
}

// ByProduct returns revenue per product.
func (s *Sales) ByProduct() []Total {
	return sumBy(s.Records, func(r SalesRecord) string { return r.Product })
}

// ByRegionProduct returns revenue per region and product, keyed
// "region/product".
func (s *Sales) ByRegionProduct() []Total {
	return sumBy(s.Records, func(r SalesRecord) string { return r.Region + "/" + r.Product })
}

// BestWorstMonth returns the months with the highest and lowest revenue.
// The earliest month wins ties.
func (s *Sales) BestWorstMonth() (best, worst string) {
	months := s.ByMonth()
	if len(months) == 0 {
		return "", ""
	}
	b, w := months[0], months[0]
	for _, m := range months[1:] {
		if m.Value > b.Value {
			b = m
		}
		if m.Value < w.Value {
			w = m
		}
	}
	return b.Key, w.Key
}

// RegionTable renders ByRegion.
func (s *Sales) RegionTable() string {
	t := &table{header: []string{"region", "revenue", "target", "units", "attainment"}}
	for _, r := range s.ByRegion() {
		t.add(r.Region, fixed(r.Revenue, 0), fixed(r.Target, 0), fmt.Sprint(r.Units), fixed(r.Attainment, 1))
	}
	return t.String()
}

// RegionProductTable renders ByRegionProduct.
func (s *Sales) RegionProductTable() string {
	t := &table{header: []string{"region", "product", "revenue"}}
	for _, rp := range s.ByRegionProduct() {
		region, product, _ := strings.Cut(rp.Key, "/")
		t.add(region, product, fixed(rp.Value, 0))
	}
	return t.String()
}

// Summary is the data digest handed to the analyst model.
func (s *Sales) Summary() string {
	k := s.KPIs()
	best, worst := s.BestWorstMonth()
	var sb strings.Builder
	sb.WriteString("Sales Data Summary:\n")
	fmt.Fprintf(&sb, "- Total Revenue: %s\n", money(k.Revenue))
	fmt.Fprintf(&sb, "- Target Attainment: %s%%\n", fixed(k.Attainment, 1))
	fmt.Fprintf(&sb, "- Best Month: %s\n", best)
	fmt.Fprintf(&sb, "- Worst Month: %s\n", worst)
	sb.WriteString("- Regional Performance:\n")
	sb.WriteString(s.RegionTable())
	return sb.String()
}

// Name implements Dataset.
func (s *Sales) Name() string { return "sales" }

// AnalysisPrompt implements Dataset.
func (s *Sales) AnalysisPrompt() (system, user string) {
	return SalesAnalystSystem,
		"Analyse this sales data and give me the 5 most important insights a sales director needs to know:\n" + s.Summary()
}

// ChatContext implements Dataset.
func (s *Sales) ChatContext() (system, data string) {
	return SalesChatSystem, "Sales data summary:\n" + s.RegionProductTable()
}
