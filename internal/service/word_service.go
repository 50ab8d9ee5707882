package service

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/noah-isme/mandarin-tutor-api/internal/models"
)

// defaultWordKB is the built-in beginner vocabulary used when no external
// knowledge base is loaded.
var defaultWordKB = []models.WordKnowledge{
	{Chinese: "猫", Pinyin: "māo", English: "cat", Category: "animals", DifficultyLevel: models.LevelL1, UsageExamples: []string{"我有一只猫。"}, Emoji: "🐱"},
	{Chinese: "狗", Pinyin: "gǒu", English: "dog", Category: "animals", DifficultyLevel: models.LevelL1, UsageExamples: []string{"小狗很可爱。"}, Emoji: "🐶"},
	{Chinese: "鸟", Pinyin: "niǎo", English: "bird", Category: "animals", DifficultyLevel: models.LevelL1, UsageExamples: []string{"鸟在唱歌。"}, Emoji: "🐦"},
	{Chinese: "水", Pinyin: "shuǐ", English: "water", Category: "food", DifficultyLevel: models.LevelL1, UsageExamples: []string{"我想喝水。"}, Emoji: "💧"},
	{Chinese: "苹果", Pinyin: "píngguǒ", English: "apple", Category: "food", DifficultyLevel: models.LevelL1, UsageExamples: []string{"苹果很好吃。"}, Emoji: "🍎"},
	{Chinese: "面包", Pinyin: "miànbāo", English: "bread", Category: "food", DifficultyLevel: models.LevelL2, UsageExamples: []string{"早上我吃面包。"}, Emoji: "🍞"},
	{Chinese: "妈妈", Pinyin: "māma", English: "mom", Category: "family", DifficultyLevel: models.LevelL1, UsageExamples: []string{"我爱妈妈。"}, Emoji: "👩"},
	{Chinese: "爸爸", Pinyin: "bàba", English: "dad", Category: "family", DifficultyLevel: models.LevelL1, UsageExamples: []string{"爸爸在工作。"}, Emoji: "👨"},
	{Chinese: "吃", Pinyin: "chī", English: "to eat", Category: "actions", DifficultyLevel: models.LevelL2, UsageExamples: []string{"你想吃什么？"}, Emoji: "🍽️"},
	{Chinese: "喝", Pinyin: "hē", English: "to drink", Category: "actions", DifficultyLevel: models.LevelL2, UsageExamples: []string{"我喝牛奶。"}, Emoji: "🥛"},
	{Chinese: "玩", Pinyin: "wán", English: "to play", Category: "actions", DifficultyLevel: models.LevelL2, UsageExamples: []string{"我们一起玩吧！"}, Emoji: "🎮"},
}

// WordService serves the vocabulary knowledge base and extracts Chinese
// words from text for mastery tracking.
type WordService struct {
	byWord     map[string]models.WordKnowledge
	byCategory map[string][]models.WordKnowledge
	categories []string
	rng        *rand.Rand
}

// NewWordService builds the service over the built-in knowledge base.
func NewWordService(seed int64) *WordService {
	s := &WordService{
		byWord:     make(map[string]models.WordKnowledge, len(defaultWordKB)),
		byCategory: make(map[string][]models.WordKnowledge),
		rng:        rand.New(rand.NewSource(seed)),
	}
	for _, entry := range defaultWordKB {
		s.byWord[entry.Chinese] = entry
		s.byCategory[entry.Category] = append(s.byCategory[entry.Category], entry)
	}
	for category := range s.byCategory {
		s.categories = append(s.categories, category)
	}
	sort.Strings(s.categories)
	return s
}

// Lookup returns the knowledge base entry for a word.
func (s *WordService) Lookup(word string) (models.WordKnowledge, bool) {
	entry, ok := s.byWord[word]
	return entry, ok
}

// Categories lists the known vocabulary categories in sorted order.
func (s *WordService) Categories() []string {
	out := make([]string, len(s.categories))
	copy(out, s.categories)
	return out
}

// RandomCategory picks a category for the next teaching activity.
func (s *WordService) RandomCategory() string {
	if len(s.categories) == 0 {
		return ""
	}
	return s.categories[s.rng.Intn(len(s.categories))]
}

// WordsForLevel returns entries at or below the given level, easiest first.
func (s *WordService) WordsForLevel(level models.LanguageLevel) []models.WordKnowledge {
	out := make([]models.WordKnowledge, 0, len(defaultWordKB))
	for _, entry := range defaultWordKB {
		if entry.DifficultyLevel.Ordinal() <= level.Ordinal() {
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DifficultyLevel != out[j].DifficultyLevel {
			return out[i].DifficultyLevel.Ordinal() < out[j].DifficultyLevel.Ordinal()
		}
		return out[i].Chinese < out[j].Chinese
	})
	return out
}

// ExtractHanWords splits a text into maximal runs of CJK Unified
// Ideographs. Runs matching a multi-character knowledge base entry stay
// whole; unknown runs are returned as-is.
func (s *WordService) ExtractHanWords(text string) []string {
	var runs []string
	var current strings.Builder
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FFF {
			current.WriteRune(r)
			continue
		}
		if current.Len() > 0 {
			runs = append(runs, current.String())
			current.Reset()
		}
	}
	if current.Len() > 0 {
		runs = append(runs, current.String())
	}

	var words []string
	for _, run := range runs {
		words = append(words, s.segmentRun(run)...)
	}
	return words
}

// segmentRun greedily matches known words inside a run, longest first, and
// falls back to single characters.
func (s *WordService) segmentRun(run string) []string {
	runes := []rune(run)
	var words []string
	for i := 0; i < len(runes); {
		matched := false
		for length := len(runes) - i; length >= 2; length-- {
			candidate := string(runes[i : i+length])
			if _, ok := s.byWord[candidate]; ok {
				words = append(words, candidate)
				i += length
				matched = true
				break
			}
		}
		if !matched {
			words = append(words, string(runes[i]))
			i++
		}
	}
	return words
}
