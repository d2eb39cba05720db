package qa

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lockitd/lockit/internal/types"
)

func row(source, target string) *types.Row {
	return &types.Row{ID: 1, FileID: 2, RowNum: 1, Source: source, Target: target}
}

func TestPlaceholderTokens(t *testing.T) {
	tokens := placeholderTokens("Gained %d gold (%.1f%%) for {player}")
	assert.Equal(t, []string{"%d", "%.1f", "{player}"}, tokens)
}

func TestPatternCheckPlaceholderParity(t *testing.T) {
	check := PatternCheck{}

	assert.Empty(t, check.Check(row("Hello %s, you have %d coins", "%d 코인이 있습니다, %s님")))

	findings := check.Check(row("Hello %s, you have %d coins", "%d 코인이 있습니다"))
	require.Len(t, findings, 1)
	assert.Equal(t, types.QAError, findings[0].Severity)
	assert.Equal(t, []string{"%s"}, findings[0].Details["missing"])

	findings = check.Check(row("Press {0}", "Press {0} or {1}"))
	require.Len(t, findings, 1)
	assert.Equal(t, []string{"{1}"}, findings[0].Details["extra"])
}

func TestPatternCheckLiteralPercent(t *testing.T) {
	assert.Empty(t, PatternCheck{}.Check(row("100%% done", "100%% fertig")))
}

func TestColorRuns(t *testing.T) {
	runs, err := colorRuns("<PAColor0xFF00FF00>go<PAColorEnd> now")
	require.NoError(t, err)
	assert.Equal(t, []string{"FF00FF00"}, runs)

	runs, err = colorRuns("plain text")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestColorRunsTrailingOpenImplicitlyClosed(t *testing.T) {
	// A missing trailing close marker is not an error; the run is
	// treated as closed at end-of-string.
	runs, err := colorRuns("<PAColor0xFFFF0000>danger")
	require.NoError(t, err)
	assert.Equal(t, []string{"FFFF0000"}, runs)
}

func TestColorRunsMalformed(t *testing.T) {
	_, err := colorRuns("oops<PAColorEnd>")
	require.Error(t, err)

	_, err = colorRuns("<PAColor0xFF00FF00>a<PAColor0xFF0000FF>b")
	require.Error(t, err)

	_, err = colorRuns("<PAColor0xZZ00FF00>bad")
	require.Error(t, err)
}

func TestPatternCheckColorParity(t *testing.T) {
	check := PatternCheck{}

	src := "<PAColor0xFFFF0000>HP<PAColorEnd> low"
	assert.Empty(t, check.Check(row(src, "<PAColor0xFFFF0000>HP<PAColorEnd> niedrig")))

	// Trailing implicit close still counts as the same run.
	assert.Empty(t, check.Check(row(src, "<PAColor0xFFFF0000>HP niedrig")))

	findings := check.Check(row(src, "HP niedrig"))
	require.Len(t, findings, 1)
	assert.Equal(t, types.QAError, findings[0].Severity)
	assert.Equal(t, []string{"FFFF0000"}, findings[0].Details["missing_colors"])
}

func TestPatternCheckMalformedTarget(t *testing.T) {
	findings := PatternCheck{}.Check(row("fine", "bad<PAColorEnd>"))
	require.Len(t, findings, 1)
	assert.Contains(t, findings[0].Message, "malformed color markup in target")
}

func TestLineCheck(t *testing.T) {
	check := LineCheck{}

	assert.Empty(t, check.Check(row("a\nb", "x\ny")))

	findings := check.Check(row("a\nb", "xy"))
	require.Len(t, findings, 1)
	assert.Equal(t, types.QAWarning, findings[0].Severity)
	assert.Equal(t, 2, findings[0].Details["source_lines"])
	assert.Equal(t, 1, findings[0].Details["target_lines"])
}

func TestCharacterCheck(t *testing.T) {
	check := CharacterCheck{}

	assert.Empty(t, check.Check(row("OK", "D'accord")))

	long := make([]byte, 0, 40)
	for i := 0; i < 40; i++ {
		long = append(long, 'x')
	}
	findings := check.Check(row("OK", string(long)))
	require.Len(t, findings, 1)
	assert.Equal(t, types.QAWarning, findings[0].Severity)
	assert.Equal(t, 14, findings[0].Details["limit"])
}

func TestTermCheck(t *testing.T) {
	terms := []*types.GlossaryTerm{
		{TMID: 5, Source: "Mana", Target: "마나"},
		{TMID: 5, Source: "Guild", Target: "길드"},
	}
	check := NewTermCheck(terms)

	assert.Empty(t, check.Check(row("Restore Mana", "마나 회복")))
	assert.Empty(t, check.Check(row("Open inventory", "인벤토리 열기")))

	findings := check.Check(row("Join a Guild", "클랜에 가입"))
	require.Len(t, findings, 1)
	assert.Equal(t, types.QAWarning, findings[0].Severity)
	assert.Contains(t, findings[0].Message, "길드")
}

func TestRunnerSkipsUntranslatedAndFillsResults(t *testing.T) {
	runner := NewRunner(Defaults(nil)...)

	rows := []*types.Row{
		{ID: 10, FileID: 3, RowNum: 1, Source: "Hello %s", Target: ""},
		{ID: 11, FileID: 3, RowNum: 2, Source: "Hello %s", Target: "Bonjour"},
	}
	results := runner.Run(rows)
	require.Len(t, results, 1)
	assert.Equal(t, int64(11), results[0].RowID)
	assert.Equal(t, int64(3), results[0].FileID)
	assert.Equal(t, types.QAPattern, results[0].CheckType)
	assert.Equal(t, types.QAError, results[0].Severity)
	assert.Nil(t, results[0].ResolvedAt)
	assert.NotEmpty(t, results[0].Details)
}
