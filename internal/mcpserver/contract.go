package mcpserver

import "github.com/starford/ladle/internal/prompts"

// RecipeFormatContract describes the canonical JSON recipe document that
// LLM consumers should follow when reading or writing recipes.
const RecipeFormatContract = `# Ladle Recipe Format Contract

Every recipe version stored in Ladle is a JSON document with this shape.

## Fields

` + prompts.RecipeContract + `

## Rules

1. **` + "`" + `metadata.title` + "`" + ` is required**, as are ingredient ` + "`" + `name` + "`" + ` and step ` + "`" + `instruction` + "`" + `.
2. **Quantities** are numbers when exact (` + "`" + `2` + "`" + `, ` + "`" + `0.5` + "`" + `) and strings when not (` + "`" + `"1/2"` + "`" + `, ` + "`" + `"to taste"` + "`" + `).
3. **IDs** are stable across versions: keep ` + "`" + `ing_001` + "`" + ` and ` + "`" + `step_001` + "`" + ` when editing, number new entries after the highest existing one.
4. **The ` + "`" + `version` + "`" + ` block is assigned by Ladle.** Any value you send is ignored; the stored number is the next integer for the recipe and the semantic version follows the bump policy.
5. **Steps** are ordered by ` + "`" + `order` + "`" + ` starting at 1.

## Version bumps

- ` + "`" + `major` + "`" + `: scaling the recipe.
- ` + "`" + `minor` + "`" + `: adding, removing or replacing ingredients; adding, removing or reordering steps.
- ` + "`" + `patch` + "`" + `: any other change.

Use the ` + "`" + `bump_version` + "`" + ` tool to compute the next version for an action and intent.

## Photos

- Attach photos to a cooking session with the ` + "`" + `attach_session_photo` + "`" + ` tool.
- Photos are served from ` + "`" + `/photos/<filename>` + "`" + `; supported formats: png, jpg, jpeg, gif, webp.
`
