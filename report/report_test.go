package report_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/document/parser"
	"github.com/c360studio/speclint/ears"
	"github.com/c360studio/speclint/implscan"
	"github.com/c360studio/speclint/report"
)

const validRequirements = `# 検証ツール要件定義書

## 1. 概要

仕様文書を検証するツールの要件を定める。

## 2. 用語集

- **EARS**: 要件記述パターン

## 3. スコープ

Markdown形式の仕様文書を対象とする。

## 4. 制約事項

- 制約: ローカル環境で動作すること

## 5. 非機能要件

- NFR-01: システムは、1秒以内に検証結果を返すこと

## 6. KPI

- KPI-01: 検証成功率99%を維持する

## 7. 機能要件（EARS）

- REQ-01: システムは、Markdown文書を解析すること
- REQ-02: システムは、検証結果を出力すること

## 8. テスト要件

- TR-01: 主要ルールの回帰テストを整備する
`

const validDesign = `# 検証ツール設計書

## 1. アーキテクチャ

パイプライン構成とする。REQ-01は**input-handler**が処理し、REQ-02は**report-builder**が整形する。

## 2. コンポーネント設計

- **input-handler**: 入力読み込みと解析
- **report-builder**: 検証結果の整形

## 3. データ

検証結果はJSONで保持する。

## 4. API

コマンドラインインターフェースのみ提供する。

## 5. 非機能

TR-01の観点で性能を確認する。

## 6. テスト

- **test-parse-flow**: 解析から検証までの一連の流れ
- **test-report-format**: 出力形式の確認

## 7. トレーサビリティ

REQ-01 ⇔ **test-parse-flow**
REQ-02 ⇔ **test-report-format**
`

const validTasks = `# 実装タスク

## 1. 概要

実装を3タスクに分割する。

## 2. タスク一覧

### Phase 1: 基盤構築

- [ ] TASK-01-01: プロジェクト初期化
  - 要件: REQ-01
  - DC: input-handler
  - 見積: 2h
  - 依存: なし
- [ ] TASK-01-02: 解析と検証の実装
  - 要件: REQ-01, REQ-02
  - DC: report-builder, test-parse-flow
  - 見積: 4h
  - 依存: TASK-01-01

### Phase 2: 仕上げ

- [ ] TASK-02-01: 出力整形の実装
  - 要件: REQ-02, TR-01
  - DC: report-builder, test-report-format
  - 見積: 4h
  - 依存: TASK-01-02

## 3. 依存関係

TASK-01-01 の完了後に TASK-01-02、TASK-02-01 を実施する。

## 4. マイルストーン

- M1: 解析基盤の完成
`

// brokenRequirements drops the final section so the structure rule fails.
func brokenRequirements() string {
	return strings.SplitN(validRequirements, "## 8.", 2)[0]
}

func TestValidateRequirements(t *testing.T) {
	res, err := report.ValidateRequirements(validRequirements, document.LanguageJapanese)
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	assert.Equal(t, document.KindRequirements, res.Kind)
	assert.Equal(t, 2, res.Stats["totalRequirements"])
	assert.Equal(t, 1, res.Stats["totalNFRs"])
	assert.Equal(t, 1, res.Stats["totalKPIs"])
	assert.Equal(t, 1, res.Stats["totalTRs"])
}

func TestValidateRequirementsRejectsBlankInput(t *testing.T) {
	_, err := report.ValidateRequirements("   \n", document.LanguageJapanese)
	require.Error(t, err)
	assert.ErrorIs(t, err, parser.ErrNoDocument)
}

func TestValidateDesign(t *testing.T) {
	res, err := report.ValidateDesign(validDesign, document.LanguageJapanese, validRequirements)
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	assert.Equal(t, document.KindDesign, res.Kind)
	assert.Equal(t, 2, res.Stats["referencedRequirements"])
	assert.Equal(t, 1, res.Stats["referencedTRs"])
	assert.Equal(t, []string{}, res.Stats["missingReferences"])
}

func TestValidateDesignWithoutCompanion(t *testing.T) {
	res, err := report.ValidateDesign(validDesign, document.LanguageJapanese, "")
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	assert.Equal(t, []string{}, res.Stats["missingReferences"])
}

func TestValidateTasks(t *testing.T) {
	res, err := report.ValidateTasks(validTasks, document.LanguageJapanese, validRequirements, validDesign)
	require.NoError(t, err)

	assert.True(t, res.IsValid)
	assert.Equal(t, document.KindTasks, res.Kind)
	assert.Equal(t, 3, res.Stats["totalTasks"])
	assert.Equal(t, 2, res.Stats["dependencies"])
	assert.Equal(t, []string{}, res.Stats["missingRequirementReferences"])
	assert.Equal(t, []string{}, res.Stats["missingTRReferences"])
	assert.Equal(t, []string{}, res.Stats["missingDesignReferences"])
}

func TestLegacyShape(t *testing.T) {
	res, err := report.ValidateDesign(validDesign, document.LanguageJapanese, validRequirements)
	require.NoError(t, err)

	legacy := report.Legacy(res)
	assert.Equal(t, true, legacy["isValid"])
	assert.Equal(t, []string{}, legacy["issues"])
	assert.Equal(t, res.Stats, legacy["stats"])
	assert.Equal(t, res.FoundSections, legacy["foundSections"])
}

func TestLegacyCarriesIssueMessages(t *testing.T) {
	res, err := report.ValidateRequirements(brokenRequirements(), document.LanguageJapanese)
	require.NoError(t, err)
	require.False(t, res.IsValid)

	legacy := report.Legacy(res)
	assert.Equal(t, false, legacy["isValid"])
	assert.Equal(t, []string{"必須セクションがありません: テスト要件"}, legacy["issues"])
}

func TestBuildMatrixFromText(t *testing.T) {
	m, err := report.BuildMatrix(validRequirements, validDesign, validTasks)
	require.NoError(t, err)

	assert.Equal(t, []string{"REQ-01", "REQ-02"}, m.Requirements)
	assert.Equal(t, []string{"input-handler", "report-builder"}, m.Components)
	assert.Equal(t, []string{"test-parse-flow", "test-report-format"}, m.Scenarios)
	assert.Equal(t, []string{"input-handler"}, m.RequirementToComponents["REQ-01"])
	assert.Equal(t, []string{"report-builder"}, m.RequirementToComponents["REQ-02"])
	assert.Equal(t, []string{"TASK-01-02"}, m.TestScenarioToTasks["test-parse-flow"])
	assert.Equal(t, []string{"TASK-01-02", "TASK-02-01"}, m.ComponentToTasks["report-builder"])
	assert.Empty(t, m.Orphans.Tasks)
	assert.Equal(t, 100.0, m.Coverage.Requirements)
	assert.Equal(t, 100.0, m.Coverage.Tasks)
}

func TestBuildMatrixToleratesBlankTexts(t *testing.T) {
	m, err := report.BuildMatrix("", "", "")
	require.NoError(t, err)

	assert.Empty(t, m.Requirements)
	assert.Equal(t, 100.0, m.Coverage.Requirements)
}

func TestRendererValidationSuccess(t *testing.T) {
	res, err := report.ValidateRequirements(validRequirements, document.LanguageJapanese)
	require.NoError(t, err)

	out := report.NewRenderer(document.LanguageJapanese).Validation(res)
	assert.Contains(t, out, "検証に成功しました")
	assert.Contains(t, out, "要件定義書")
	assert.Contains(t, out, "要件数: 2（NFR: 1、KPI: 1、TR: 1）")
	assert.Contains(t, out, "EARS準拠率: 2/2（100.0%）")
	assert.Contains(t, out, "検出されたセクション:")
	assert.Contains(t, out, "機能要件（EARS）")
	assert.NotContains(t, out, "修正")
}

func TestRendererValidationFailure(t *testing.T) {
	res, err := report.ValidateRequirements(brokenRequirements(), document.LanguageJapanese)
	require.NoError(t, err)
	require.False(t, res.IsValid)

	out := report.NewRenderer(document.LanguageJapanese).Validation(res)
	assert.Contains(t, out, "検証に失敗しました")
	assert.Contains(t, out, "検出された問題: 1件")
	assert.Contains(t, out, "以下の問題を修正してください:")
	assert.Contains(t, out, "1. 必須セクションがありません: テスト要件")
	assert.Contains(t, out, "上記の問題を修正した後、再度検証を実行してください。")
	assert.NotContains(t, out, "検出されたセクション:")
}

func TestRendererEnglishCatalog(t *testing.T) {
	res, err := report.ValidateRequirements(validRequirements, document.LanguageJapanese)
	require.NoError(t, err)

	out := report.NewRenderer(document.LanguageEnglish).Validation(res)
	assert.Contains(t, out, "Validation passed")
	assert.Contains(t, out, "Requirements: 2 (NFR: 1, KPI: 1, TR: 1)")
	assert.Contains(t, out, "Sections found:")
}

func TestRendererMatrix(t *testing.T) {
	m, err := report.BuildMatrix(validRequirements, validDesign, validTasks)
	require.NoError(t, err)

	out := report.NewRenderer(document.LanguageJapanese).Matrix(m)
	assert.Contains(t, out, "トレーサビリティマトリクス")
	assert.Contains(t, out, "→ input-handler ⇔ test-parse-flow")
	assert.Contains(t, out, "- report-builder → TASK-01-02, TASK-02-01")
	assert.Contains(t, out, "- test-report-format → TASK-02-01")
	assert.Contains(t, out, "カバレッジ: 要件 100.0%、コンポーネント 100.0%、タスク 100.0%")
	assert.NotContains(t, out, "参照されていない項目")
}

func TestRendererMatrixListsOrphans(t *testing.T) {
	m, err := report.BuildMatrix(validRequirements, validDesign, "")
	require.NoError(t, err)

	out := report.NewRenderer(document.LanguageJapanese).Matrix(m)
	assert.Contains(t, out, "参照されていない項目: ")
	assert.Contains(t, out, "input-handler")
}

func TestRendererEARS(t *testing.T) {
	rep := ears.Summarize([]ears.FileResult{
		{
			Path: "specs/requirements.md",
			Result: ears.Result{
				Total:   3,
				Matched: 2,
				Rate:    2.0 / 3.0,
				Violations: []ears.Violation{
					{Line: 12, Text: "システムが結果を返す", Code: ears.ReasonMissingSystemPrefixJa, Reason: "主語が未指定です"},
				},
			},
		},
	})

	out := report.NewRenderer(document.LanguageJapanese).EARS(rep)
	assert.Contains(t, out, "EARS準拠率: 2/3（66.7%）")
	assert.Contains(t, out, "specs/requirements.md: 2/3")
	assert.Contains(t, out, "EARSに適合しない要件:")
	assert.Contains(t, out, "12行目: システムが結果を返す")
	assert.Contains(t, out, "主語が未指定です")
}

func TestRendererEARSEmptyInput(t *testing.T) {
	out := report.NewRenderer(document.LanguageEnglish).EARS(ears.Report{})
	assert.Contains(t, out, "EARS compliance: 0/0 (0.0%)")
	assert.Contains(t, out, "No functional requirements found")
}

func TestRendererCoverageSuccess(t *testing.T) {
	rep := &implscan.Report{
		Annotations: []implscan.Annotation{
			{ID: "TASK-01-01", File: "main.go", Line: 3},
		},
		ScannedFiles: 4,
	}

	out := report.NewRenderer(document.LanguageJapanese).Coverage(rep)
	assert.Contains(t, out, "実装カバレッジ")
	assert.Contains(t, out, "走査ファイル数: 4、注釈数: 1")
	assert.Contains(t, out, "すべてのタスクに実装コードがあります")
	assert.NotContains(t, out, "実装コードが見つからないタスク")
}

func TestRendererCoverageFailure(t *testing.T) {
	rep := &implscan.Report{
		ScannedFiles:             2,
		UnimplementedTasks:       []string{"TASK-03-01"},
		UnreferencedRequirements: []string{"REQ-02"},
		UnknownIDs: []implscan.Annotation{
			{ID: "REQ-99", File: "main.go", Line: 6},
		},
	}

	out := report.NewRenderer(document.LanguageEnglish).Coverage(rep)
	assert.Contains(t, out, "Implementation coverage check failed")
	assert.Contains(t, out, "Tasks with no implementing code:")
	assert.Contains(t, out, "TASK-03-01")
	assert.Contains(t, out, "Requirements never referenced from code:")
	assert.Contains(t, out, "REQ-02")
	assert.Contains(t, out, "Annotations referencing unknown IDs:")
	assert.Contains(t, out, "REQ-99 (main.go:L6)")
}
