package detector

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/pemistahl/lingua-go"
)

// DefaultLevel is used for difficulty text no vocabulary entry matches.
const DefaultLevel = 2

// levelVocabulary is checked in order; the more specific labels come first so
// "upper intermediate" is not caught by "intermediate", "初中级" not by "中级"
// and "零基础" not by "基础".
var levelVocabulary = []struct {
	level    int
	keywords []string
}{
	{5, []string{"expert", "master", "专家", "精通", "大师"}},
	{4, []string{"upper intermediate", "advanced", "高级", "深入"}},
	{2, []string{"初中级"}},
	{3, []string{"intermediate", "中级", "进阶"}},
	{1, []string{"beginner", "introductory", "entry", "novice", "入门", "初级", "零基础", "新手"}},
	{2, []string{"elementary", "basic", "基础"}},
}

var levelDigit = regexp.MustCompile(`(?i)\b(?:level|lvl|l)\s*([1-5])\b`)

// MatchLevel maps a free-text difficulty label to 1-5. ok is false when
// nothing in the label is recognized.
func MatchLevel(label string) (int, bool) {
	lower := strings.ToLower(strings.TrimSpace(label))
	if lower == "" {
		return 0, false
	}
	for _, entry := range levelVocabulary {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.level, true
			}
		}
	}
	if m := levelDigit.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	return 0, false
}

// Level is MatchLevel with unmapped text defaulting to DefaultLevel.
func Level(label string) int {
	if n, ok := MatchLevel(label); ok {
		return n
	}
	return DefaultLevel
}

// tagVocabulary maps a tag to the keywords that trigger it, in output order.
var tagVocabulary = []struct {
	tag      string
	keywords []string
}{
	{"AI", []string{"machine learning", "deep learning", "artificial intelligence", "neural", " ai ", "人工智能", "机器学习", "深度学习"}},
	{"Data Science", []string{"data science", "data analysis", "statistics", "pandas", "数据分析", "数据科学"}},
	{"Python", []string{"python"}},
	{"Web", []string{"web", "html", "css", "javascript", "react", "前端"}},
	{"Backend", []string{"backend", "distributed", "microservice", "server", "后端", "分布式"}},
	{"Cloud", []string{"cloud", "kubernetes", "docker", "devops", "云计算"}},
	{"Database", []string{"database", "sql", "数据库"}},
	{"Security", []string{"security", "cryptography", "网络安全", "密码学"}},
	{"Mobile", []string{"android", "ios", "mobile", "移动开发"}},
	{"Math", []string{"algebra", "calculus", "probability", "mathematics", "数学", "高等数学"}},
	{"Programming", []string{"programming", "java", "golang", "c++", "algorithm", "编程", "程序设计", "算法"}},
	{"Design", []string{"design", "ux", "设计"}},
	{"Business", []string{"business", "management", "marketing", "finance", "accounting", "管理", "金融", "会计"}},
	{"Language", []string{"english", "language", "writing", "英语", "写作"}},
}

// FallbackTags pad keyword matches up to the two-tag minimum.
var FallbackTags = []string{"Online Course", "Self-Paced"}

// Tags matches title and description against the keyword vocabulary and pads
// the result with FallbackTags until it holds at least two entries.
func Tags(title, description string) []string {
	text := " " + strings.ToLower(title+" "+description) + " "
	var tags []string
	for _, entry := range tagVocabulary {
		for _, kw := range entry.keywords {
			if strings.Contains(text, kw) {
				tags = append(tags, entry.tag)
				break
			}
		}
	}
	for _, fb := range FallbackTags {
		if len(tags) >= 2 {
			break
		}
		if !contains(tags, fb) {
			tags = append(tags, fb)
		}
	}
	return tags
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// enrollmentCeiling is the learner count that maps to the top of the heat range.
const enrollmentCeiling = 1_000_000

// HeatFromEnrollment scales a real enrollment count onto [lo, hi] on a log
// scale, so 1 learner sits at lo and a million or more at hi.
func HeatFromEnrollment(learners, lo, hi int) int {
	if learners <= 1 {
		return lo
	}
	ratio := math.Log10(float64(learners)) / math.Log10(enrollmentCeiling)
	if ratio > 1 {
		ratio = 1
	}
	return lo + int(math.Round(ratio*float64(hi-lo)))
}

var isoLanguages = map[string]lingua.Language{
	"en": lingua.English,
	"zh": lingua.Chinese,
	"ja": lingua.Japanese,
	"ko": lingua.Korean,
	"es": lingua.Spanish,
	"fr": lingua.French,
	"de": lingua.German,
	"pt": lingua.Portuguese,
	"ru": lingua.Russian,
	"it": lingua.Italian,
}

// LanguageDetector guesses the ISO 639-1 code of course text.
type LanguageDetector struct {
	detector lingua.LanguageDetector
}

// NewLanguageDetector builds a detector restricted to codes. Unknown codes are
// ignored; fewer than two usable codes falls back to English and Chinese.
func NewLanguageDetector(codes []string) *LanguageDetector {
	var languages []lingua.Language
	for _, code := range codes {
		if lang, ok := isoLanguages[strings.ToLower(code)]; ok {
			languages = append(languages, lang)
		}
	}
	if len(languages) < 2 {
		languages = []lingua.Language{lingua.English, lingua.Chinese}
	}
	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().FromLanguages(languages...).Build(),
	}
}

// Detect returns a lower-case ISO 639-1 code, or "" when undecided.
func (d *LanguageDetector) Detect(text string) string {
	if d == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
