package dataflows

import (
	"testing"
)

const constituentsHTML = `
<html><body>
<table id="constituents">
<tbody>
<tr><th>Symbol</th><th>Security</th><th>GICS Sector</th><th>GICS Sub-Industry</th></tr>
<tr>
  <td>AAPL</td><td>Apple Inc.</td><td>Information Technology</td><td>Technology Hardware, Storage &amp; Peripherals</td>
</tr>
<tr>
  <td>BRK.B</td><td>Berkshire Hathaway</td><td>Financials</td><td>Multi-Sector Holdings</td>
</tr>
<tr><td></td><td>empty symbol row</td><td>x</td><td>y</td></tr>
</tbody>
</table>
</body></html>`

func TestParseConstituents(t *testing.T) {
	got, err := parseConstituents(constituentsHTML)
	if err != nil {
		t.Fatalf("parseConstituents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 constituents, got %d", len(got))
	}

	if got[0].Symbol != "AAPL" || got[0].Sector != "Information Technology" {
		t.Fatalf("first row wrong: %+v", got[0])
	}
	if got[0].SubIndustry != "Technology Hardware, Storage & Peripherals" {
		t.Fatalf("sub-industry not decoded: %q", got[0].SubIndustry)
	}
	// Dots become dashes to match the quote feed's symbology.
	if got[1].Symbol != "BRK-B" {
		t.Fatalf("symbol not normalized: %q", got[1].Symbol)
	}
}

func TestParseConstituentsEmptyTable(t *testing.T) {
	if _, err := parseConstituents("<html><body></body></html>"); err == nil {
		t.Fatal("expected error for page without the table")
	}
}

func TestUniverseCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	u := NewUniverseClient(dir)

	written := []Constituent{
		{Symbol: "AAPL", Name: "Apple Inc.", Sector: "Information Technology", SubIndustry: "Technology Hardware, Storage & Peripherals"},
	}
	u.writeCache(written)

	read, ok := u.readCache()
	if !ok {
		t.Fatal("cache write not readable")
	}
	if len(read) != 1 || read[0].Symbol != "AAPL" {
		t.Fatalf("cache round trip corrupted: %+v", read)
	}
}
