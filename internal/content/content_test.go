package content_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"novel-game/internal/content"
	"novel-game/internal/model"
)

const jsonDocument = `{
  "objectives": ["Find the bell"],
  "themes": ["loyalty"],
  "writing_style": ["noir"],
  "random_events": ["A storm"],
  "image_gen_styles": ["woodcut"],
  "initial_prompt": ["Goal: OBJECTIVE. ", "Theme: THEME. Style: STYLE. ", "Fail by FAIL_STATES."],
  "fail_states": ["drowning", "capture"]
}`

const yamlDocument = `
objectives: [Find the bell]
themes: [loyalty]
writing_style: [noir]
image_gen_styles: [woodcut]
initial_prompt:
  - "Goal: OBJECTIVE."
`

// firstPicker всегда выбирает первый элемент пула.
type firstPicker struct{}

func (firstPicker) IntN(int) int { return 0 }

func TestParseJSON(t *testing.T) {
	doc, err := content.ParseJSON([]byte(jsonDocument))
	require.NoError(t, err)

	assert.Equal(t, []string{"Find the bell"}, doc.Objectives)
	assert.Equal(t, []string{"noir"}, doc.WritingStyles)
	assert.Equal(t, []string{"woodcut"}, doc.ImageStyles)
	assert.Len(t, doc.InitialPrompt, 3)
}

func TestParseJSON_Malformed(t *testing.T) {
	_, err := content.ParseJSON([]byte(`{"objectives": [`))
	assert.ErrorIs(t, err, model.ErrInvalidContent)
}

func TestValidate_ReportsMissingPools(t *testing.T) {
	_, err := content.ParseYAML([]byte("objectives: [a]\n"))
	require.ErrorIs(t, err, model.ErrInvalidContent)
	assert.Contains(t, err.Error(), "image_gen_styles, initial_prompt, themes, writing_style")
}

func TestLoad_ByExtension(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "game.json")
	yamlPath := filepath.Join(dir, "game.yml")
	require.NoError(t, os.WriteFile(jsonPath, []byte(jsonDocument), 0o644))
	require.NoError(t, os.WriteFile(yamlPath, []byte(yamlDocument), 0o644))

	fromJSON, err := content.Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"drowning", "capture"}, fromJSON.FailStates)

	fromYAML, err := content.Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"Goal: OBJECTIVE."}, fromYAML.InitialPrompt)
	assert.Empty(t, fromYAML.RandomEvents)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := content.Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_SampleContent(t *testing.T) {
	doc, err := content.Load(filepath.Join("..", "..", "configs", "pete_game.yaml"))
	require.NoError(t, err)
	assert.NotEmpty(t, doc.RandomEvents)
}

func TestNewSetup_SubstitutesTemplate(t *testing.T) {
	doc, err := content.ParseJSON([]byte(jsonDocument))
	require.NoError(t, err)

	setup := doc.NewSetup(firstPicker{})

	assert.Equal(t, "Find the bell", setup.Objective)
	assert.Equal(t, "woodcut", setup.ImageStyle)
	assert.Equal(t, "drowning, capture", setup.FailStates)
	assert.Equal(t, "Goal: Find the bell. Theme: loyalty. Style: noir. Fail by drowning, capture.", setup.InitialPrompt)
	assert.Equal(t, []string{"A storm"}, setup.RandomEvents)
}

func TestSubstitute_ReplacesEveryOccurrence(t *testing.T) {
	got := content.Substitute("OBJECTIVE and OBJECTIVE in STYLE", "run", "haste", "", "")
	assert.Equal(t, "run and run in haste", got)
}

func TestSetup_Seed(t *testing.T) {
	setup := content.Setup{InitialPrompt: "Begin."}

	seed := setup.Seed("You are a storyteller.")

	assert.Equal(t, model.Transcript{
		{Role: model.RoleSystem, Content: "You are a storyteller."},
		{Role: model.RoleUser, Content: "Begin."},
	}, seed)
}
