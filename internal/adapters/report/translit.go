package report

import "strings"

var cyrillicToLatin = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "y", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "kh", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "shch",
	'ъ': "", 'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	'—': "-", '–': "-", '«': "\"", '»': "\"", '№': "No.",
}

// Transliterate rewrites Russian text in Latin letters so it survives the
// cp1252 core fonts. Unknown non-ASCII runes become '?'.
func Transliterate(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 {
			b.WriteRune(r)
			continue
		}
		lower := r
		upper := false
		if r >= 'А' && r <= 'Я' || r == 'Ё' {
			upper = true
			lower = []rune(strings.ToLower(string(r)))[0]
		}
		latin, ok := cyrillicToLatin[lower]
		if !ok {
			b.WriteByte('?')
			continue
		}
		if upper && latin != "" {
			latin = strings.ToUpper(latin[:1]) + latin[1:]
		}
		b.WriteString(latin)
	}
	return b.String()
}
