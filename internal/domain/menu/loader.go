package menu

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	pgzip "github.com/klauspost/pgzip"
	"github.com/shopspring/decimal"
)

// LoadFile reads a menu from a JSON file. Files ending in ".gz" are
// decompressed first.
func LoadFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer func() { _ = f.Close() }()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(err, "create gzip reader for %s", path)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	}

	items, err := Load(r)
	if err != nil {
		return nil, errors.Wrapf(err, "load %s", path)
	}
	return items, nil
}

// Load decodes a JSON array of menu items and validates each entry.
//
//	[{"id":1,"name":"Truffle Risotto","description":"...","price":"28.50",
//	  "category":"mains","imageUrl":"https://..."}]
//
// Prices may be JSON strings or numbers.
func Load(r io.Reader) ([]Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "read menu")
	}

	var items []Item
	d := jx.DecodeBytes(bytes.TrimSpace(data))
	if err := d.Arr(func(d *jx.Decoder) error {
		it, err := decodeItem(d)
		if err != nil {
			return errors.Wrapf(err, "item %d", len(items))
		}
		items = append(items, it)
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "decode menu")
	}

	if err := validate(items); err != nil {
		return nil, err
	}
	return items, nil
}

func decodeItem(d *jx.Decoder) (Item, error) {
	var it Item
	err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			it.ID, err = d.Int()
		case "name":
			it.Name, err = d.Str()
		case "description":
			it.Description, err = d.Str()
		case "price":
			it.Price, err = decodeDecimal(d)
		case "category":
			var c string
			c, err = d.Str()
			it.Category = Category(c)
		case "imageUrl":
			it.ImageURL, err = d.Str()
		default:
			err = d.Skip()
		}
		return err
	})
	return it, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	default:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	}
}

func validate(items []Item) error {
	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		switch {
		case it.ID <= 0:
			return errors.Errorf("menu item %q: id must be positive", it.Name)
		case strings.TrimSpace(it.Name) == "":
			return errors.Errorf("menu item %d: name is required", it.ID)
		case it.Price.IsNegative():
			return errors.Errorf("menu item %d: price must not be negative", it.ID)
		case !it.Price.Equal(it.Price.Round(2)):
			return errors.Errorf("menu item %d: price has more than 2 decimal places", it.ID)
		case !it.Category.Valid():
			return errors.Errorf("menu item %d: unknown category %q", it.ID, it.Category)
		}
		if _, ok := seen[it.ID]; ok {
			return errors.Errorf("menu item %d: duplicate id", it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
