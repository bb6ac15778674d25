package rules_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/speclint/document"
	"github.com/c360studio/speclint/document/parser"
	"github.com/c360studio/speclint/validation"
	"github.com/c360studio/speclint/validation/rules"
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

パイプライン構成とする。REQ-01、REQ-02に対応する。

## 2. コンポーネント設計

- input-handler: 入力読み込み [REQ-01]
- report-builder: 結果整形 [REQ-02]

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

func parseDoc(t *testing.T, content string, kind document.DocumentKind) *document.Document {
	t.Helper()
	doc, err := parser.New().Parse(content, document.LanguageJapanese, kind)
	require.NoError(t, err)
	return doc
}

func ctxFor(doc *document.Document) *validation.Context {
	return &validation.Context{Primary: doc, Language: doc.Language}
}

// lineOf returns the 1-based line number of the first line containing marker.
func lineOf(t *testing.T, content, marker string) int {
	t.Helper()
	for i, line := range strings.Split(content, "\n") {
		if strings.Contains(line, marker) {
			return i + 1
		}
	}
	t.Fatalf("marker %q not found", marker)
	return 0
}

func evaluateSet(set []validation.Rule, ctx *validation.Context) []validation.Issue {
	var issues []validation.Issue
	for _, rule := range set {
		issues = append(issues, rule.Evaluate(ctx)...)
	}
	return issues
}

func TestDefaultRuleOrder(t *testing.T) {
	sets := rules.Default()

	var reqIDs, designIDs, taskIDs []string
	for _, r := range sets.Requirements {
		reqIDs = append(reqIDs, r.Meta().ID)
	}
	for _, r := range sets.Design {
		designIDs = append(designIDs, r.Meta().ID)
	}
	for _, r := range sets.Tasks {
		taskIDs = append(taskIDs, r.Meta().ID)
	}

	assert.Equal(t, []string{
		"STRUCT-REQ-001", "FORMAT-REQ-001", "FORMAT-REQ-002", "EARS-REQ-001",
	}, reqIDs)
	assert.Equal(t, []string{
		"STRUCT-DESIGN-001", "TRACE-DESIGN-002", "TRACE-DESIGN-001", "TRACE-REQ-001",
	}, designIDs)
	assert.Equal(t, []string{
		"STRUCT-TASKS-001", "FORMAT-TASK-001", "FORMAT-TASK-002",
		"CONSIST-TASK-001", "CONSIST-TASK-002",
		"TRACE-TASKS-001", "TRACE-TASKS-002", "TRACE-REQ-001",
		"TRACE-TASKS-003", "TRACE-TASKS-004",
	}, taskIDs)
}

func TestDefaultRulesPassOnValidTrio(t *testing.T) {
	reqDoc := parseDoc(t, validRequirements, document.KindRequirements)
	designDoc := parseDoc(t, validDesign, document.KindDesign)
	tasksDoc := parseDoc(t, validTasks, document.KindTasks)

	sets := rules.Default()

	reqCtx := ctxFor(reqDoc)
	assert.Empty(t, evaluateSet(sets.Requirements, reqCtx))

	designCtx := ctxFor(designDoc)
	designCtx.Requirements = reqDoc
	assert.Empty(t, evaluateSet(sets.Design, designCtx))

	tasksCtx := ctxFor(tasksDoc)
	tasksCtx.Requirements = reqDoc
	tasksCtx.Design = designDoc
	assert.Empty(t, evaluateSet(sets.Tasks, tasksCtx))
}

func TestStructureReportsMissingSection(t *testing.T) {
	content := validRequirements[:strings.Index(validRequirements, "## 8.")]
	doc := parseDoc(t, content, document.KindRequirements)

	issues := rules.NewRequirementsStructure().Evaluate(ctxFor(doc))

	require.Len(t, issues, 1)
	assert.Equal(t, "STRUCT-REQ-001", issues[0].RuleID)
	assert.Equal(t, "必須セクションがありません: テスト要件", issues[0].Message)
	assert.Equal(t, validation.DocumentLocation, issues[0].Location)
}

func TestStructureAcceptsCompleteDocuments(t *testing.T) {
	tests := []struct {
		name    string
		content string
		kind    document.DocumentKind
		rule    validation.Rule
	}{
		{"requirements", validRequirements, document.KindRequirements, rules.NewRequirementsStructure()},
		{"design", validDesign, document.KindDesign, rules.NewDesignStructure()},
		{"tasks", validTasks, document.KindTasks, rules.NewTasksStructure()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseDoc(t, tt.content, tt.kind)
			assert.Empty(t, tt.rule.Evaluate(ctxFor(doc)))
		})
	}
}

const invalidIDRequirements = `# 要件定義書

## 機能要件

- REQ-01: システムは、正しいIDを使うこと
- REQ-1: システムは、短い番号を使うこと
- REQ-100: システムは、三桁の番号を使うこと
- REQ-00: システムは、予約番号を使うこと
`

func TestRequirementIDFormat(t *testing.T) {
	doc := parseDoc(t, invalidIDRequirements, document.KindRequirements)

	issues := rules.NewRequirementIDFormat().Evaluate(ctxFor(doc))

	require.Len(t, issues, 3)
	assert.Equal(t, "REQ-IDの形式が不正です: REQ-1", issues[0].Message)
	assert.Equal(t, "REQ-IDの形式が不正です: REQ-100", issues[1].Message)
	assert.Equal(t, "REQ-IDの形式が不正です: REQ-00", issues[2].Message)
	assert.Equal(t, lineOf(t, invalidIDRequirements, "REQ-1:"), issues[0].Location.LineStart)
}

func TestRequirementIDFormatStats(t *testing.T) {
	doc := parseDoc(t, validRequirements, document.KindRequirements)

	stats := map[string]any{}
	rules.NewRequirementIDFormat().ReportStats(ctxFor(doc), stats)

	assert.Equal(t, 2, stats["totalRequirements"])
	assert.Equal(t, 1, stats["totalNFRs"])
	assert.Equal(t, 1, stats["totalKPIs"])
	assert.Equal(t, 1, stats["totalTRs"])
}

const duplicateRequirements = `# 要件定義書

## 機能要件

- REQ-01: システムは、最初の要件を満たすこと
- REQ-02: システムは、二番目の要件を満たすこと
- REQ-01: システムは、重複する要件を持つこと
`

func TestDuplicateRequirementIDReportedOnce(t *testing.T) {
	doc := parseDoc(t, duplicateRequirements, document.KindRequirements)

	issues := rules.NewDuplicateRequirementID().Evaluate(ctxFor(doc))

	require.Len(t, issues, 1)
	assert.Equal(t, "REQ-IDが重複しています: REQ-01", issues[0].Message)
	assert.Equal(t, lineOf(t, duplicateRequirements, "重複する要件"), issues[0].Location.LineStart)
}

const invalidIDTasks = `# 実装タスク

## タスク一覧

- [ ] TASK-01: 部分が足りないID
- [ ] TASK-01-001: 桁数の違うID
- [ ] TASK-01-00: 予約番号のID
- [ ] TASK-01-01: 正しいID
`

func TestTaskIDFormat(t *testing.T) {
	doc := parseDoc(t, invalidIDTasks, document.KindTasks)

	issues := rules.NewTaskIDFormat().Evaluate(ctxFor(doc))

	require.Len(t, issues, 3)
	assert.Equal(t, "TASK-IDの形式が不正です: TASK-01", issues[0].Message)
	assert.Equal(t, "TASK-IDの形式が不正です: TASK-01-001", issues[1].Message)
	assert.Equal(t, "TASK-IDの形式が不正です: TASK-01-00", issues[2].Message)
}

func TestTaskIDFormatStats(t *testing.T) {
	doc := parseDoc(t, validTasks, document.KindTasks)

	stats := map[string]any{}
	rules.NewTaskIDFormat().ReportStats(ctxFor(doc), stats)

	assert.Equal(t, 3, stats["totalTasks"])
	assert.Equal(t, 2, stats["dependencies"])
}

const duplicateTasks = `# 実装タスク

## タスク一覧

- [ ] TASK-01-01: 最初のタスク
- [ ] TASK-01-02: 二番目のタスク
- [ ] TASK-01-01: 重複するタスク
`

func TestDuplicateTaskIDReportedOnce(t *testing.T) {
	doc := parseDoc(t, duplicateTasks, document.KindTasks)

	issues := rules.NewDuplicateTaskID().Evaluate(ctxFor(doc))

	require.Len(t, issues, 1)
	assert.Equal(t, "TASK-IDが重複しています: TASK-01-01", issues[0].Message)
	assert.Equal(t, lineOf(t, duplicateTasks, "重複するタスク"), issues[0].Location.LineStart)
}

const earsViolationRequirements = `# 要件定義書

## 機能要件

- REQ-01: システムは、入力を検証すること
- REQ-02: 入力を検証すること
- REQ-03: システムは、結果を返す
`

func TestEARSComplianceFlagsViolations(t *testing.T) {
	doc := parseDoc(t, earsViolationRequirements, document.KindRequirements)

	issues := rules.NewEARSCompliance().Evaluate(ctxFor(doc))

	require.Len(t, issues, 2)
	assert.Contains(t, issues[0].Message, "EARSパターン")
	assert.Contains(t, issues[0].Message, "「システムは」または「本システムは」で始めてください")
	assert.Equal(t, lineOf(t, earsViolationRequirements, "REQ-02"), issues[0].Location.LineStart)
	assert.Contains(t, issues[1].Message, "「すること」または「する」で終えてください")
	assert.Equal(t, lineOf(t, earsViolationRequirements, "REQ-03"), issues[1].Location.LineStart)
}

func TestEARSComplianceStats(t *testing.T) {
	doc := parseDoc(t, earsViolationRequirements, document.KindRequirements)

	stats := map[string]any{}
	rules.NewEARSCompliance().ReportStats(ctxFor(doc), stats)

	require.Contains(t, stats, "ears")
}

const noRefDesign = `# 設計書

## アーキテクチャ

単一バイナリ構成とする。
`

func TestDesignReferencesRequirements(t *testing.T) {
	doc := parseDoc(t, noRefDesign, document.KindDesign)

	issues := rules.NewDesignReferencesRequirements().Evaluate(ctxFor(doc))

	require.Len(t, issues, 1)
	assert.Equal(t, "設計書にREQ-IDへの参照がありません", issues[0].Message)

	stats := map[string]any{}
	rules.NewDesignReferencesRequirements().ReportStats(ctxFor(doc), stats)
	assert.Equal(t, 0, stats["referencedRequirements"])
	assert.Equal(t, 0, stats["referencedTRs"])
}

func TestDesignReferencesRequirementsStats(t *testing.T) {
	doc := parseDoc(t, validDesign, document.KindDesign)

	stats := map[string]any{}
	rules.NewDesignReferencesRequirements().ReportStats(ctxFor(doc), stats)

	assert.Equal(t, 2, stats["referencedRequirements"])
	assert.Equal(t, 1, stats["referencedTRs"])
}

func TestTraceabilitySection(t *testing.T) {
	withSection := parseDoc(t, validDesign, document.KindDesign)
	assert.Empty(t, rules.NewTraceabilitySection().Evaluate(ctxFor(withSection)))

	without := parseDoc(t, noRefDesign, document.KindDesign)
	issues := rules.NewTraceabilitySection().Evaluate(ctxFor(without))
	require.Len(t, issues, 1)
	assert.Contains(t, issues[0].Message, "トレーサビリティ")
}

func TestRequirementCoverage(t *testing.T) {
	reqDoc := parseDoc(t, validRequirements, document.KindRequirements)
	designDoc := parseDoc(t, noRefDesign, document.KindDesign)

	ctx := ctxFor(designDoc)
	ctx.Requirements = reqDoc

	issues := rules.NewRequirementCoverage().Evaluate(ctx)

	require.Len(t, issues, 1)
	assert.Equal(t, "参照されていない要件があります: REQ-01, REQ-02", issues[0].Message)

	stats := map[string]any{}
	rules.NewRequirementCoverage().ReportStats(ctx, stats)
	assert.Equal(t, []string{"REQ-01", "REQ-02"}, stats["missingReferences"])
}

func TestRequirementCoverageSilentWithoutCompanion(t *testing.T) {
	designDoc := parseDoc(t, noRefDesign, document.KindDesign)

	ctx := ctxFor(designDoc)
	assert.Empty(t, rules.NewRequirementCoverage().Evaluate(ctx))

	stats := map[string]any{}
	rules.NewRequirementCoverage().ReportStats(ctx, stats)
	assert.Equal(t, []string{}, stats["missingReferences"])
}

const manyRequirements = `# 要件定義書

## 機能要件

- REQ-01: システムは、第一の要件を満たすこと
- REQ-02: システムは、第二の要件を満たすこと
- REQ-03: システムは、第三の要件を満たすこと
- REQ-04: システムは、第四の要件を満たすこと
- REQ-05: システムは、第五の要件を満たすこと
- REQ-06: システムは、第六の要件を満たすこと
- REQ-07: システムは、第七の要件を満たすこと
`

func TestRequirementCoverageElidesLongLists(t *testing.T) {
	reqDoc := parseDoc(t, manyRequirements, document.KindRequirements)
	designDoc := parseDoc(t, noRefDesign, document.KindDesign)

	ctx := ctxFor(designDoc)
	ctx.Requirements = reqDoc

	issues := rules.NewRequirementCoverage().Evaluate(ctx)

	require.Len(t, issues, 1)
	assert.Equal(t,
		"参照されていない要件があります: REQ-01, REQ-02, REQ-03, REQ-04, REQ-05...",
		issues[0].Message)
}

func TestRequirementCoverageTasksStatsKey(t *testing.T) {
	reqDoc := parseDoc(t, validRequirements, document.KindRequirements)
	tasksDoc := parseDoc(t, duplicateTasks, document.KindTasks)

	ctx := ctxFor(tasksDoc)
	ctx.Requirements = reqDoc

	stats := map[string]any{}
	rules.NewRequirementCoverage().ReportStats(ctx, stats)

	assert.Equal(t, []string{"REQ-01", "REQ-02"}, stats["missingRequirementReferences"])
	assert.NotContains(t, stats, "missingReferences")
}

const cycleTasks = `# 実装タスク

## タスク一覧

- [ ] TASK-01-01: 相互依存タスクA
  - 依存: TASK-01-02
- [ ] TASK-01-02: 相互依存タスクB
  - 依存: TASK-01-01
`

const ringTasks = `# 実装タスク

## タスク一覧

- [ ] TASK-01-01: リングA
  - 依存: TASK-01-02
- [ ] TASK-01-02: リングB
  - 依存: TASK-01-03
- [ ] TASK-01-03: リングC
  - 依存: TASK-01-04
- [ ] TASK-01-04: リングD
  - 依存: TASK-01-01
`

func TestCircularDependencyTwoNodeCycle(t *testing.T) {
	doc := parseDoc(t, cycleTasks, document.KindTasks)

	issues := rules.NewCircularDependency(false).Evaluate(ctxFor(doc))

	require.Len(t, issues, 1)
	assert.Equal(t, "循環依存が検出されました: TASK-01-02 <-> TASK-01-01", issues[0].Message)
	assert.Equal(t, lineOf(t, cycleTasks, "相互依存タスクB"), issues[0].Location.LineStart)
}

func TestCircularDependencyLongCycle(t *testing.T) {
	doc := parseDoc(t, ringTasks, document.KindTasks)

	issues := rules.NewCircularDependency(false).Evaluate(ctxFor(doc))

	require.Len(t, issues, 1)
	assert.Equal(t, "循環依存が検出されました: TASK-01-04 <-> TASK-01-01", issues[0].Message)
}

func TestCircularDependencyAcceptsChain(t *testing.T) {
	doc := parseDoc(t, validTasks, document.KindTasks)

	assert.Empty(t, rules.NewCircularDependency(false).Evaluate(ctxFor(doc)))
}

const selfLoopTasks = `# 実装タスク

## タスク一覧

- [ ] TASK-01-01: 自分に依存するタスク
  - 依存: TASK-01-01
`

func TestCircularDependencySelfLoop(t *testing.T) {
	doc := parseDoc(t, selfLoopTasks, document.KindTasks)

	issues := rules.NewCircularDependency(false).Evaluate(ctxFor(doc))

	require.Len(t, issues, 1)
	assert.Equal(t, "循環依存が検出されました: TASK-01-01 <-> TASK-01-01", issues[0].Message)
}

func TestCircularDependencyDirectPairMode(t *testing.T) {
	twoNode := parseDoc(t, cycleTasks, document.KindTasks)
	issues := rules.NewCircularDependency(true).Evaluate(ctxFor(twoNode))
	require.Len(t, issues, 2)
	assert.Equal(t, "循環依存が検出されました: TASK-01-01 <-> TASK-01-02", issues[0].Message)
	assert.Equal(t, "循環依存が検出されました: TASK-01-02 <-> TASK-01-01", issues[1].Message)

	// The direct-pair detector misses cycles longer than two tasks.
	ring := parseDoc(t, ringTasks, document.KindTasks)
	assert.Empty(t, rules.NewCircularDependency(true).Evaluate(ctxFor(ring)))
}

func TestDirectPairCyclesOption(t *testing.T) {
	doc := parseDoc(t, cycleTasks, document.KindTasks)
	ctx := ctxFor(doc)

	count := func(issues []validation.Issue) int {
		n := 0
		for _, is := range issues {
			if is.RuleID == "CONSIST-TASK-001" {
				n++
			}
		}
		return n
	}

	assert.Equal(t, 1, count(evaluateSet(rules.Default().Tasks, ctx)))
	assert.Equal(t, 2, count(evaluateSet(rules.Default(rules.WithDirectPairCycles()).Tasks, ctx)))
}

const unknownDepTasks = `# 実装タスク

## タスク一覧

- [ ] TASK-01-01: 定義済みタスク
  - 依存: TASK-09-09
`

func TestDependencyExists(t *testing.T) {
	doc := parseDoc(t, unknownDepTasks, document.KindTasks)

	issues := rules.NewDependencyExists().Evaluate(ctxFor(doc))

	require.Len(t, issues, 1)
	assert.Equal(t, "未定義のタスクに依存しています: TASK-09-09", issues[0].Message)
	assert.Equal(t, lineOf(t, unknownDepTasks, "定義済みタスク"), issues[0].Location.LineStart)

	// The cycle detector skips edges to undefined tasks.
	assert.Empty(t, rules.NewCircularDependency(false).Evaluate(ctxFor(doc)))
}

func TestTasksReferenceRequirements(t *testing.T) {
	reqDoc := parseDoc(t, validRequirements, document.KindRequirements)
	bare := parseDoc(t, cycleTasks, document.KindTasks)

	ctx := ctxFor(bare)
	ctx.Requirements = reqDoc
	issues := rules.NewTasksReferenceRequirements().Evaluate(ctx)
	require.Len(t, issues, 1)
	assert.Equal(t, "タスク文書にREQ-IDへの参照がありません", issues[0].Message)

	// Silent without a companion, and when the companion defines nothing.
	assert.Empty(t, rules.NewTasksReferenceRequirements().Evaluate(ctxFor(bare)))

	empty := parseDoc(t, "# 要件定義書\n\n## 概要\n\n要件はまだない。\n", document.KindRequirements)
	ctx.Requirements = empty
	assert.Empty(t, rules.NewTasksReferenceRequirements().Evaluate(ctx))
}

func TestTasksReferenceRequirementsStats(t *testing.T) {
	reqDoc := parseDoc(t, validRequirements, document.KindRequirements)
	bare := parseDoc(t, cycleTasks, document.KindTasks)

	ctx := ctxFor(bare)
	ctx.Requirements = reqDoc

	stats := map[string]any{}
	rules.NewTasksReferenceRequirements().ReportStats(ctx, stats)
	assert.Equal(t, []string{"TR-01"}, stats["missingTRReferences"])

	covered := parseDoc(t, validTasks, document.KindTasks)
	ctx = ctxFor(covered)
	ctx.Requirements = reqDoc

	stats = map[string]any{}
	rules.NewTasksReferenceRequirements().ReportStats(ctx, stats)
	assert.Equal(t, []string{}, stats["missingTRReferences"])
}

func TestTasksReferenceDesign(t *testing.T) {
	designDoc := parseDoc(t, validDesign, document.KindDesign)
	bare := parseDoc(t, cycleTasks, document.KindTasks)

	ctx := ctxFor(bare)
	ctx.Design = designDoc
	issues := rules.NewTasksReferenceDesign().Evaluate(ctx)
	require.Len(t, issues, 1)
	assert.Equal(t, "タスク文書に設計コンポーネントへの参照がありません", issues[0].Message)

	assert.Empty(t, rules.NewTasksReferenceDesign().Evaluate(ctxFor(bare)))
}

const partialTasks = `# 実装タスク

## タスク一覧

- [ ] TASK-01-01: 解析の実装
  - 要件: REQ-01
  - DC: input-handler, test-parse-flow
  - 依存: なし
`

func TestTestScenarioCoverage(t *testing.T) {
	designDoc := parseDoc(t, validDesign, document.KindDesign)
	tasksDoc := parseDoc(t, partialTasks, document.KindTasks)

	ctx := ctxFor(tasksDoc)
	ctx.Design = designDoc

	issues := rules.NewTestScenarioCoverage().Evaluate(ctx)

	require.Len(t, issues, 1)
	assert.Equal(t,
		"タスクで参照されていないテストシナリオがあります: test-report-format",
		issues[0].Message)

	assert.Empty(t, rules.NewTestScenarioCoverage().Evaluate(ctxFor(tasksDoc)))
}

func TestDesignComponentCoverage(t *testing.T) {
	designDoc := parseDoc(t, validDesign, document.KindDesign)
	tasksDoc := parseDoc(t, partialTasks, document.KindTasks)

	ctx := ctxFor(tasksDoc)
	ctx.Design = designDoc

	issues := rules.NewDesignComponentCoverage().Evaluate(ctx)

	require.Len(t, issues, 1)
	assert.Equal(t,
		"タスクで参照されていない設計コンポーネントがあります: report-builder",
		issues[0].Message)

	stats := map[string]any{}
	rules.NewDesignComponentCoverage().ReportStats(ctx, stats)
	assert.Equal(t, []string{"report-builder"}, stats["missingDesignReferences"])

	assert.Empty(t, rules.NewDesignComponentCoverage().Evaluate(ctxFor(tasksDoc)))
}
