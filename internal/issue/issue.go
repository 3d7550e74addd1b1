// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

type Id int

const (
	InstanceNotFoundId Id = iota + 1
	ModListUnreadableId
	ConfigLoadFailedId
	SettingsInvalidId
	OutputNotWritableId
	PermissionDeniedId
	NegativeCacheCorruptId
	ExclusionFileUnreadableId
	LocalizedPluginId
	LaunchFailedId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink  // must never be empty, because we need to have docs about all issue types
	extLinks []HttpLink  // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

// Render renders the issue as terminal markdown using the given glamour style
// ("dark", "light", "notty", "auto" or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range i.docLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
		for _, link := range i.extLinks {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

const docsBase = "https://github.com/LightSofa/dsd-generator/blob/main/docs/"

var (
	render = glamour.Render

	instanceNotFoundIssue = &Issue{
		id: InstanceNotFoundId,
		mdMsg: `
# No mod manager instance found!

dsdgen needs an instance directory containing a ` + "`mods/`" + ` folder and a
` + "`profiles/<profile>/modlist.txt`" + ` load order.

## Things you can try:
- Point dsdgen at your instance:
~~~
$ dsdgen run --instance "D:/Modding/Skyrim SE"
~~~

- Or persist it in your config file:
~~~
$ dsdgen config init
~~~
    and set ` + "`instance_dir`" + `.`,
		docLinks: []HttpLink{docsBase + "instance.md"},
	}

	modListUnreadableIssue = &Issue{
		id: ModListUnreadableId,
		mdMsg: `
# The load order could not be read!

The profile's ` + "`modlist.txt`" + ` is missing or unreadable, so no content
packages could be enumerated. Nothing was written.

## Things you can try:
- Check the profile name:
~~~
$ dsdgen scan --profile Default
~~~

- Make sure the mod manager is not holding the file open while writing it.`,
		docLinks: []HttpLink{docsBase + "instance.md#profiles"},
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load the configuration!

The configuration file exists but could not be parsed or failed schema validation.

## Things you can try:
- Print the effective configuration:
~~~
$ dsdgen config show
~~~

- Regenerate a default file:
~~~
$ dsdgen config init --force
~~~

- Override single values with ` + "`DSDGEN_`" + ` environment variables.`,
		docLinks: []HttpLink{docsBase + "configuration.md"},
	}

	settingsInvalidIssue = &Issue{
		id: SettingsInvalidId,
		mdMsg: `
# Invalid instance settings!

` + "`dsdgen.toml`" + ` in the instance directory holds a value of the wrong type.

## Things you can try:
- Inspect and reset individual keys:
~~~
$ dsdgen settings list
$ dsdgen settings set auto_run true
~~~`,
		docLinks: []HttpLink{docsBase + "settings.md"},
	}

	outputNotWritableIssue = &Issue{
		id: OutputNotWritableId,
		mdMsg: `
# The output package could not be written!

dsdgen could not create the output content package inside ` + "`mods/`" + `.

## Things you can try:
- Check free disk space and that the folder is not read-only.
- Pick another output name:
~~~
$ dsdgen run --output DSD_Configs_manual
~~~`,
		docLinks: []HttpLink{docsBase + "output.md"},
	}

	permissionDeniedIssue = &Issue{
		id: PermissionDeniedId,
		mdMsg: `
# Permission denied!

A file inside the instance could not be read or written.

## Things you can try:
- Close the game and the mod manager, then retry.
- On Windows, avoid keeping the instance under ` + "`Program Files`" + `.`,
		docLinks: []HttpLink{docsBase + "troubleshooting.md#permissions"},
	}

	negativeCacheCorruptIssue = &Issue{
		id: NegativeCacheCorruptId,
		mdMsg: `
# The rejection cache was unreadable!

The negative cache is not valid JSON and was treated as empty. Pairs that
were rejected before will be evaluated again.

## Things you can try:
- Reset it explicitly:
~~~
$ dsdgen cache clear
~~~`,
		docLinks: []HttpLink{docsBase + "cache.md"},
	}

	exclusionFileUnreadableIssue = &Issue{
		id: ExclusionFileUnreadableId,
		mdMsg: `
# The exclusion list could not be read!

The batch ran without exclusions.

## Syntax reminder
~~~
# comment
@1234            exclude every package with this external id
SomeMod/         exclude a package by name
Patch.esp        exclude a plugin file name
~~~`,
		docLinks: []HttpLink{docsBase + "exclusions.md"},
	}

	localizedPluginIssue = &Issue{
		id: LocalizedPluginId,
		mdMsg: `
# Localized plugin skipped

The plugin stores its strings in external ` + "`.STRINGS`" + ` tables, which are
not read. The pair was skipped and the batch continued.`,
		docLinks: []HttpLink{docsBase + "troubleshooting.md#localized-plugins"},
	}

	launchFailedIssue = &Issue{
		id: LaunchFailedId,
		mdMsg: `
# The game could not be launched!

The pre-launch batch finished but the configured launch command failed to start.

## Things you can try:
- Check ` + "`launch.command`" + ` in your config file.
- Run the batch on its own:
~~~
$ dsdgen run --autonomous
~~~`,
		docLinks: []HttpLink{docsBase + "launch.md"},
	}

	issues = map[Id]*Issue{
		instanceNotFoundIssue.Id():        instanceNotFoundIssue,
		modListUnreadableIssue.Id():       modListUnreadableIssue,
		configLoadFailedIssue.Id():        configLoadFailedIssue,
		settingsInvalidIssue.Id():         settingsInvalidIssue,
		outputNotWritableIssue.Id():       outputNotWritableIssue,
		permissionDeniedIssue.Id():        permissionDeniedIssue,
		negativeCacheCorruptIssue.Id():    negativeCacheCorruptIssue,
		exclusionFileUnreadableIssue.Id(): exclusionFileUnreadableIssue,
		localizedPluginIssue.Id():         localizedPluginIssue,
		launchFailedIssue.Id():            launchFailedIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	return slices.SortedFunc(maps.Values(issues), func(a, b *Issue) int {
		return int(a.id) - int(b.id)
	})
}

func Get(id Id) *Issue {
	return issues[id]
}
