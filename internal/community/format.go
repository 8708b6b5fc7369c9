// Package community turns the attribute mapping of an apartment community into
// the plain-text block that is inserted into the agent prompt.
package community

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"vla/internal/domain"
)

// EmptyInfo is returned when nothing in the mapping could be rendered.
const EmptyInfo = "No additional community information is available."

// preferredOrder lists the attributes the prompt reads best with first.
// Everything else follows alphabetically.
var preferredOrder = []string{
	"name",
	"address",
	"phone",
	"office_hours",
	"amenities",
	"pet_policy",
	"parking_options",
	"specials",
	"pricing",
}

var moneyHints = map[string]bool{
	"fee": true, "fees": true, "price": true, "prices": true, "pricing": true,
	"rent": true, "rents": true, "deposit": true, "deposits": true, "cost": true, "costs": true,
}

// Format renders info as one block per top-level attribute. Missing, nil and
// empty values are omitted. Unexpected value types fall back to fmt.Sprint.
// Format never panics and always returns a non-empty string.
func Format(info domain.CommunityInfo) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = EmptyInfo
		}
	}()

	var b strings.Builder
	for _, key := range orderedKeys(info) {
		block := formatAttribute(key, info[key])
		if block == "" {
			continue
		}
		b.WriteString(block)
		b.WriteString("\n")
	}
	if b.Len() == 0 {
		return EmptyInfo
	}
	return strings.TrimRight(b.String(), "\n")
}

func orderedKeys(info domain.CommunityInfo) []string {
	seen := make(map[string]bool, len(info))
	keys := make([]string, 0, len(info))
	for _, k := range preferredOrder {
		if _, ok := info[k]; ok {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := make([]string, 0, len(info))
	for k := range info {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func formatAttribute(key string, value any) string {
	label := Label(key)
	rv := reflect.ValueOf(value)
	if !rv.IsValid() {
		return ""
	}
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		if rv.Len() == 0 {
			return fmt.Sprintf("There are no %s available.", strings.ToLower(label))
		}
		if containsMaps(rv) {
			return label + ":\n" + formatNumbered(key, rv)
		}
		items := scalarList(isMoney(key), rv)
		if len(items) == 0 {
			return ""
		}
		return label + ": " + strings.Join(items, ", ")
	case reflect.Map:
		pairs := inlineMap(rv, isMoney(key))
		if pairs == "" {
			return ""
		}
		return label + ": " + pairs
	}

	s, ok := formatScalar(isMoney(key), rv.Interface())
	if !ok {
		return ""
	}
	return label + ": " + s
}

// formatNumbered renders a sequence of mappings as a numbered list with one
// indented line per field, e.g. "  1. Parking option 1".
func formatNumbered(key string, rv reflect.Value) string {
	item := singular(Label(key))
	money := isMoney(key)
	var b strings.Builder
	n := 0
	for i := 0; i < rv.Len(); i++ {
		el := deref(rv.Index(i))
		if !el.IsValid() {
			continue
		}
		n++
		fmt.Fprintf(&b, "  %d. %s %d\n", n, item, n)
		if el.Kind() != reflect.Map {
			if s, ok := formatScalar(money, el.Interface()); ok {
				fmt.Fprintf(&b, "     %s\n", s)
			}
			continue
		}
		for _, mk := range sortedMapKeys(el) {
			field := fmt.Sprint(mk.Interface())
			v := deref(el.MapIndex(mk))
			if !v.IsValid() {
				continue
			}
			fieldMoney := money || isMoney(field)
			var s string
			switch v.Kind() {
			case reflect.Map:
				s = inlineMap(v, fieldMoney)
			case reflect.Slice, reflect.Array:
				s = strings.Join(scalarList(fieldMoney, v), ", ")
			default:
				s, _ = formatScalar(fieldMoney, v.Interface())
			}
			if s == "" {
				continue
			}
			fmt.Fprintf(&b, "     %s: %s\n", Label(field), s)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// inlineMap renders "key: value" pairs. money marks every number under a
// money-like parent key as an amount.
func inlineMap(rv reflect.Value, money bool) string {
	parts := make([]string, 0, rv.Len())
	for _, mk := range sortedMapKeys(rv) {
		field := fmt.Sprint(mk.Interface())
		v := deref(rv.MapIndex(mk))
		if !v.IsValid() {
			continue
		}
		fieldMoney := money || isMoney(field)
		var s string
		switch v.Kind() {
		case reflect.Map:
			s = inlineMap(v, fieldMoney)
			if s != "" {
				s = "(" + s + ")"
			}
		case reflect.Slice, reflect.Array:
			s = strings.Join(scalarList(fieldMoney, v), ", ")
		default:
			s, _ = formatScalar(fieldMoney, v.Interface())
		}
		if s == "" {
			continue
		}
		parts = append(parts, strings.ToLower(Label(field))+": "+s)
	}
	return strings.Join(parts, ", ")
}

func scalarList(money bool, rv reflect.Value) []string {
	items := make([]string, 0, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		el := deref(rv.Index(i))
		if !el.IsValid() {
			continue
		}
		var s string
		var ok bool
		if el.Kind() == reflect.Map {
			s = inlineMap(el, money)
			ok = s != ""
		} else {
			s, ok = formatScalar(money, el.Interface())
		}
		if ok {
			items = append(items, s)
		}
	}
	return items
}

func formatScalar(money bool, v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case bool:
		if t {
			return "yes", true
		}
		return "no", true
	case float64:
		return formatNumber(money, t), true
	case float32:
		return formatNumber(money, float64(t)), true
	case int:
		return formatNumber(money, float64(t)), true
	case int64:
		return formatNumber(money, float64(t)), true
	case int32:
		return formatNumber(money, float64(t)), true
	case uint:
		return formatNumber(money, float64(t)), true
	case uint64:
		return formatNumber(money, float64(t)), true
	case fmt.Stringer:
		s := t.String()
		return s, s != ""
	}
	s := fmt.Sprint(v)
	return s, s != ""
}

func formatNumber(money bool, f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Sprint(f)
	}
	if money {
		return "$" + HumanCost(f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%d", int64(f))
	}
	return humanize.Ftoa(f)
}

// HumanCost renders an amount with thousands separators, dropping the cents
// when the amount is whole: 1500 -> "1,500", 1234.5 -> "1,234.50".
func HumanCost(f float64) string {
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return humanize.Comma(int64(f))
	}
	return humanize.FormatFloat("#,###.##", f)
}

// isMoney reports whether any word of key names an amount: "pet_fee" and
// "monthlyRent" do, "current_occupancy" and "parent_company_id" do not.
func isMoney(key string) bool {
	for _, w := range strings.Fields(strings.ToLower(Label(key))) {
		if moneyHints[w] {
			return true
		}
	}
	return false
}

func containsMaps(rv reflect.Value) bool {
	for i := 0; i < rv.Len(); i++ {
		if el := deref(rv.Index(i)); el.IsValid() && el.Kind() == reflect.Map {
			return true
		}
	}
	return false
}

func deref(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

func sortedMapKeys(rv reflect.Value) []reflect.Value {
	keys := rv.MapKeys()
	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	return keys
}

// Label turns an attribute key into a sentence-case label:
// "pet_policy" -> "Pet policy", "officeHours" -> "Office hours".
func Label(key string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range key {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case i > 0 && r >= 'A' && r <= 'Z':
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	if len(words) == 0 {
		return key
	}
	s := strings.Join(words, " ")
	return strings.ToUpper(s[:1]) + s[1:]
}

func singular(label string) string {
	if strings.HasSuffix(label, "ies") {
		return strings.TrimSuffix(label, "ies") + "y"
	}
	if strings.HasSuffix(label, "s") && !strings.HasSuffix(label, "ss") {
		return strings.TrimSuffix(label, "s")
	}
	return label
}
