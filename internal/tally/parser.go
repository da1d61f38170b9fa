package tally

import (
	"fmt"

	"github.com/clbanning/mxj/v2"
)

// StockItem is one raw stock-item record from a Tally export. The same
// logical field may appear as an attribute ("$NAME"), a child element
// ("NAME"), or a nested list wrapper ("LANGUAGENAME.LIST") depending on
// the Tally version and configuration that produced the export.
type StockItem map[string]interface{}

const (
	attrPrefix    = "$"
	textKey       = "#text"
	stockItemPath = "ENVELOPE.BODY.DATA.COLLECTION.STOCKITEM"
)

func init() {
	mxj.SetAttrPrefix(attrPrefix)
}

// ParseStockItems parses a raw Tally export envelope and returns the stock
// items under ENVELOPE.BODY.DATA.COLLECTION.STOCKITEM. A single STOCKITEM
// element and a list of them are both handled. An envelope without stock
// items yields an empty result, not an error; malformed XML is an error
// (batch-fatal for the caller).
func ParseStockItems(xmlData string) ([]StockItem, error) {
	m, err := mxj.NewMapXml([]byte(xmlData))
	if err != nil {
		return nil, fmt.Errorf("failed to parse tally XML: %w", err)
	}

	vals, err := m.ValuesForPath(stockItemPath)
	if err != nil || len(vals) == 0 {
		return nil, nil
	}

	items := make([]StockItem, 0, len(vals))
	for _, v := range vals {
		if node, ok := v.(map[string]interface{}); ok {
			items = append(items, StockItem(node))
		}
	}
	return items, nil
}
