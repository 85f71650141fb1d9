package benchmark

import (
	"fmt"
	"strings"
	"testing"

	"github.com/newa-nlp/newasearch/internal/tokenizer"
)

var sampleTexts = map[string]string{
	"short": "नेपाल भाषा नेवाः जातिया भाषा खः।",
	"medium": `नेपाल भाषा नेवाः जातिया भाषा खः। थ्व भाषा काठमाडौं उपत्यकाय् छ्यला वइगु
        भाषा खः। नेपाल भाषाया साहित्य तसकं पुलांगु खः। थ्व भाषाय् छगू तजिलजि
        दु। नेवाः समुदायया पहिचान थ्व भाषा नापं स्वानाच्वंगु दु।`,
	"long": strings.Repeat(`नेपाल भाषा नेवाः जातिया मांभाषा खः। थ्व भाषा काठमाडौं उपत्यकाय्
        न्ह्यानाच्वंगु दु। भाषाया इतिहास तसकं पुलांगु जुयाच्वंगु दु। साहित्यकारतय्सं
        थ्व भाषाय् यक्व ग्रन्थ च्वयादीगु दु। आधुनिक समयय् नं थ्व भाषाया संरक्षण
        याना वनेगु ज्या जुयाच्वंगु दु। `, 20),
}

func BenchmarkTokenizeRegex(b *testing.B) {
	for name, text := range sampleTexts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens, err := tokenizer.Tokenize(text, tokenizer.ModeRegex, "")
				if err != nil {
					b.Fatal(err)
				}
				_ = tokens
			}
		})
	}
}

func BenchmarkTokenizeSpace(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		tokens, err := tokenizer.Tokenize(text, tokenizer.ModeSpace, "")
		if err != nil {
			b.Fatal(err)
		}
		_ = tokens
	}
}

func BenchmarkTokenizeParallel(b *testing.B) {
	text := sampleTexts["medium"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			tokens, err := tokenizer.Tokenize(text, tokenizer.ModeRegex, "")
			if err != nil {
				b.Fatal(err)
			}
			_ = tokens
		}
	})
}

func BenchmarkSplitSentences(b *testing.B) {
	text := sampleTexts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		sentences, err := tokenizer.SplitSentences(text, "")
		if err != nil {
			b.Fatal(err)
		}
		_ = sentences
	}
}

func BenchmarkTokenizeVaryingSize(b *testing.B) {
	sizes := []int{100, 1000, 10000, 100000}
	base := "नेपाल भाषा नेवाः जातिया भाषा खः। "
	for _, size := range sizes {
		text := strings.Repeat(base, size/len(base)+1)[:size]
		b.Run(fmt.Sprintf("bytes_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			for i := 0; i < b.N; i++ {
				tokens, err := tokenizer.Tokenize(text, tokenizer.ModeRegex, "")
				if err != nil {
					b.Fatal(err)
				}
				_ = tokens
			}
		})
	}
}
