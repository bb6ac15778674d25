package parser

import (
	"strings"
	"unicode"

	"github.com/c360studio/speclint/document"
)

// Heading patterns counted during language detection. Spec documents carry
// predictable section headings, which is faster and more reliable than
// general-purpose language detection.
var (
	japaneseSpecPatterns = []string{
		"# プロジェクト",
		"## 概要",
		"## 要求事項",
		"## 機能要求",
		"## 非機能要求",
		"## システム設計",
		"## アーキテクチャ",
		"## データ設計",
		"## タスク",
		"## 依存関係",
		"## マイルストーン",
		"## リスク",
		"# 仕様書",
		"# 設計書",
		"# タスク一覧",
	}

	englishSpecPatterns = []string{
		"# Project",
		"## Overview",
		"## Requirements",
		"## Functional Requirements",
		"## Non-Functional Requirements",
		"## System Design",
		"## Architecture",
		"## Data Design",
		"## Tasks",
		"## Dependencies",
		"## Milestones",
		"## Risks",
		"# Specification",
		"# Design Document",
		"# Task List",
	}
)

// DetectLanguage determines the language of a specification document.
// Section heading patterns are counted first; when neither language's
// patterns appear, the script of the text decides. Japanese is the default
// for undetermined input.
func DetectLanguage(content string) document.Language {
	if content == "" {
		return document.LanguageJapanese
	}

	japanese, english := 0, 0
	for _, p := range japaneseSpecPatterns {
		if strings.Contains(content, p) {
			japanese++
		}
	}
	for _, p := range englishSpecPatterns {
		if strings.Contains(content, p) {
			english++
		}
	}
	if english > japanese {
		return document.LanguageEnglish
	}
	if japanese > 0 {
		return document.LanguageJapanese
	}

	return detectByScript(content)
}

// detectByScript classifies by the runes actually used: any Japanese script
// means Japanese; otherwise Latin letters mean English.
func detectByScript(content string) document.Language {
	letters := false
	for _, r := range content {
		switch {
		case unicode.In(r, unicode.Hiragana, unicode.Katakana, unicode.Han):
			return document.LanguageJapanese
		case unicode.IsLetter(r):
			letters = true
		}
	}
	if letters {
		return document.LanguageEnglish
	}
	return document.LanguageJapanese
}
