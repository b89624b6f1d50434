package formatter

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	fahrenheit = regexp.MustCompile(`(?i)(\d{2,3})\s*(?:°\s*F\b|degrees?\s+F(?:ahrenheit)?\b|F\b)`)
	imperial   = regexp.MustCompile(`(?i)(\d+\s+\d+/\d+|\d+\s+[½⅓⅔¼¾⅛]|\d+/\d+|\d*[½⅓⅔¼¾⅛]|\d+(?:\.\d+)?)\s*(fl\.?\s*oz|fluid\s+ounces?|cups?|tablespoons?|tbsps?|teaspoons?|tsps?|ounces?|oz|pounds?|lbs?)\b`)
)

var unicodeFractions = map[rune]float64{
	'½': 0.5, '⅓': 1.0 / 3, '⅔': 2.0 / 3, '¼': 0.25, '¾': 0.75, '⅛': 0.125,
}

type metricUnit struct {
	factor float64
	unit   string
}

// toMetric is keyed by the lowercased unit with trailing "s" and dots removed.
var toMetric = map[string]metricUnit{
	"cup":         {240, "ml"},
	"tablespoon":  {15, "ml"},
	"tbsp":        {15, "ml"},
	"teaspoon":    {5, "ml"},
	"tsp":         {5, "ml"},
	"fl oz":       {30, "ml"},
	"floz":        {30, "ml"},
	"fluid ounce": {30, "ml"},
	"ounce":       {28, "g"},
	"oz":          {28, "g"},
	"pound":       {454, "g"},
	"lb":          {454, "g"},
}

// FahrenheitToCelsius converts and rounds the way recipes print oven
// temperatures: to the nearest 5 from 200°F up, otherwise to the degree.
func FahrenheitToCelsius(f float64) int {
	c := (f - 32) * 5 / 9
	if f >= 200 {
		return int(math.Round(c/5) * 5)
	}
	return int(math.Round(c))
}

// ConvertTemperatures rewrites Fahrenheit temperatures in text as Celsius.
func ConvertTemperatures(text string) string {
	return fahrenheit.ReplaceAllStringFunc(text, func(m string) string {
		f, err := strconv.ParseFloat(fahrenheit.FindStringSubmatch(m)[1], 64)
		if err != nil {
			return m
		}
		return fmt.Sprintf("%d°C", FahrenheitToCelsius(f))
	})
}

// ConvertToMetric rewrites Fahrenheit temperatures and US volume/weight
// quantities in line to metric. Lines without imperial units are unchanged.
func ConvertToMetric(line string) string {
	line = ConvertTemperatures(line)

	return imperial.ReplaceAllStringFunc(line, func(m string) string {
		sub := imperial.FindStringSubmatch(m)
		qty, ok := parseQuantity(sub[1])
		if !ok {
			return m
		}
		mu, ok := toMetric[unitKey(sub[2])]
		if !ok {
			return m
		}
		return formatAmount(qty*mu.factor) + mu.unit
	})
}

func unitKey(unit string) string {
	u := strings.ToLower(strings.ReplaceAll(unit, ".", ""))
	u = strings.Join(strings.Fields(u), " ")
	if u != "fl oz" {
		u = strings.TrimSuffix(u, "s")
	}
	return u
}

// parseQuantity reads "2", "2.5", "1/2", "1 1/2", "½", "1½" and "1 ½".
func parseQuantity(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	if whole, frac, ok := strings.Cut(s, " "); ok {
		w, okW := parseQuantity(whole)
		f, okF := parseQuantity(strings.TrimSpace(frac))
		return w + f, okW && okF
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, errN := strconv.ParseFloat(num, 64)
		d, errD := strconv.ParseFloat(den, 64)
		if errN != nil || errD != nil || d == 0 {
			return 0, false
		}
		return n / d, true
	}

	runes := []rune(s)
	if f, ok := unicodeFractions[runes[len(runes)-1]]; ok {
		if len(runes) == 1 {
			return f, true
		}
		w, err := strconv.ParseFloat(string(runes[:len(runes)-1]), 64)
		if err != nil {
			return 0, false
		}
		return w + f, true
	}

	v, err := strconv.ParseFloat(s, 64)
	return v, err == nil
}

func formatAmount(v float64) string {
	if v >= 10 {
		return strconv.Itoa(int(math.Round(v)))
	}
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', -1, 64)
}
