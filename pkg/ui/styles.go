package ui

import "github.com/charmbracelet/lipgloss"

// Greeting is shown in place of a transcript in a new chat.
const Greeting = "Hi! I'm ChefBot, your cooking assistant. I can help with recipes, techniques, ingredients, and everything food-related. What would you like to cook today?"

const sidebarWidth = 30

type styles struct {
	Sidebar        lipgloss.Style
	SidebarFocused lipgloss.Style
	SidebarTitle   lipgloss.Style
	Item           lipgloss.Style
	ItemSelected   lipgloss.Style
	ItemCurrent    lipgloss.Style
	Empty          lipgloss.Style
	UserLabel      lipgloss.Style
	BotLabel       lipgloss.Style
	Body           lipgloss.Style
	Status         lipgloss.Style
	Help           lipgloss.Style
	Dialog         lipgloss.Style
}

func defaultStyles() styles {
	orange := lipgloss.Color("208")
	gray := lipgloss.Color("241")
	return styles{
		Sidebar: lipgloss.NewStyle().
			Width(sidebarWidth).
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(gray).
			PaddingRight(1),
		SidebarFocused: lipgloss.NewStyle().
			Width(sidebarWidth).
			Border(lipgloss.NormalBorder(), false, true, false, false).
			BorderForeground(orange).
			PaddingRight(1),
		SidebarTitle: lipgloss.NewStyle().Bold(true).Foreground(orange).MarginBottom(1),
		Item:         lipgloss.NewStyle().PaddingLeft(1),
		ItemSelected: lipgloss.NewStyle().PaddingLeft(1).Foreground(lipgloss.Color("230")).Background(lipgloss.Color("238")),
		ItemCurrent:  lipgloss.NewStyle().PaddingLeft(1).Foreground(orange),
		Empty:        lipgloss.NewStyle().PaddingLeft(1).Foreground(gray).Italic(true),
		UserLabel:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		BotLabel:     lipgloss.NewStyle().Bold(true).Foreground(orange),
		Body:         lipgloss.NewStyle().PaddingLeft(2),
		Status:       lipgloss.NewStyle().Foreground(gray),
		Help:         lipgloss.NewStyle().Foreground(gray).Faint(true),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(orange).
			Padding(1, 2),
	}
}
