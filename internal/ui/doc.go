// Package ui implements an interactive terminal picker using bubbletea's Elm architecture.
//
// The picker walks through three views when removing a subscription:
//  1. [PodcastListView] : Browse and filter subscribed podcasts
//  2. [ConfirmView] : Confirm removal of the selected podcast
//  3. [ResultView] : Show the removed podcast or the failure
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Loading and removal run as [tea.Cmd] functions against a [Manager], so the store is never touched from View.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
