package tools

import (
	"regexp"
	"strings"
)

// deprecatedParams are runtime parameter names that no longer exist in
// the target Blender-script API but still show up in LLM-generated code;
// they are removed wherever they appear as a keyword argument.
var deprecatedParams = []string{"use_undo", "use_global", "constraint_axis"}

var (
	fenceRe        = regexp.MustCompile("(?s)```(?:python)?\\n?(.*?)```")
	pythonTokenRe  = regexp.MustCompile(`(?m)^\s*python\s*$`)
	deleteAllRe    = regexp.MustCompile(`bpy\.ops\.object\.delete_all\([^)]*\)`)
	loopCutSlideRe = regexp.MustCompile(`bpy\.ops\.mesh\.loopcut_slide\(([^)]*)\)`)
	numberCutsRe   = regexp.MustCompile(`number_cuts["']?\s*[:=]\s*(\d+)`)
	addonEnableRe  = regexp.MustCompile(`(?m)^.*bpy\.ops\.preferences\.addon_enable\([^)]*\).*\n?`)
	texNodeFlat1Re = regexp.MustCompile(`node_tree\.nodes\["Image Texture"\]\.image\.colorspace_settings`)
	texNodeFlat2Re = regexp.MustCompile(`node_tree\.nodes\["Environment Texture"\]\.image\.colorspace_settings`)
	importLineRe   = regexp.MustCompile(`(?m)^\s*import\s+bpy\s*$`)
	meshAPIRe      = regexp.MustCompile(`bpy\.ops\.mesh\.`)
	editModeRe     = regexp.MustCompile(`mode\s*=\s*['"]EDIT['"]`)
)

// SanitizeCode applies the fixed substitution table (§4.D) to
// LLM-generated code before it is sent to the remote host: strip
// markdown, drop deprecated parameters, rewrite operators the runtime no
// longer exposes, drop add-on-enable calls, normalize texture node access
// paths, and ensure the script enters edit mode and imports bpy exactly
// once.
func SanitizeCode(code string) string {
	code = stripFence(code)
	code = pythonTokenRe.ReplaceAllString(code, "")

	for _, p := range deprecatedParams {
		code = stripKeywordArg(code, p)
	}

	code = deleteAllRe.ReplaceAllString(code,
		"bpy.ops.object.select_all(action='SELECT')\nbpy.ops.object.delete()")

	code = loopCutSlideRe.ReplaceAllStringFunc(code, func(m string) string {
		sub := loopCutSlideRe.FindStringSubmatch(m)
		args := ""
		if len(sub) > 1 {
			if nc := numberCutsRe.FindStringSubmatch(sub[1]); nc != nil {
				args = "number_cuts=" + nc[1]
			}
		}
		return "bpy.ops.mesh.loopcut(" + args + ")"
	})

	code = addonEnableRe.ReplaceAllString(code, "")

	code = texNodeFlat1Re.ReplaceAllString(code, `node_tree.nodes["Image Texture"].image.colorspace_settings.name`)
	code = texNodeFlat2Re.ReplaceAllString(code, `node_tree.nodes["Environment Texture"].image.colorspace_settings.name`)

	if meshAPIRe.MatchString(code) && !editModeRe.MatchString(code) {
		code = "bpy.ops.object.mode_set(mode='EDIT')\n" + code
	}

	code = ensureSingleImport(code)

	return strings.TrimSpace(code) + "\n"
}

func stripFence(code string) string {
	if m := fenceRe.FindStringSubmatch(code); m != nil {
		return m[1]
	}
	return code
}

// stripKeywordArg removes "name=<value>," or ", name=<value>" occurrences
// of a deprecated keyword argument, treating the name as an opaque
// string match rather than parsing full Python syntax.
func stripKeywordArg(code, name string) string {
	re := regexp.MustCompile(name + `\s*=\s*[^,()]+,?\s*`)
	return re.ReplaceAllString(code, "")
}

func ensureSingleImport(code string) string {
	matches := importLineRe.FindAllStringIndex(code, -1)
	if len(matches) == 1 {
		return code
	}
	code = importLineRe.ReplaceAllString(code, "")
	return "import bpy\n" + strings.TrimLeft(code, "\n")
}
