package unit

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// ────────────────────────────────────────────────────────────────
// PERMISSION NAME MAPS
// ────────────────────────────────────────────────────────────────

type permission struct {
	bit   int64
	code  string
	label string
}

var permissions = []permission{
	{discordgo.PermissionCreateInstantInvite, "CreateInstantInvite", "Create Instant Invite"},
	{discordgo.PermissionKickMembers, "KickMembers", "Kick Members"},
	{discordgo.PermissionBanMembers, "BanMembers", "Ban Members"},
	{discordgo.PermissionAdministrator, "Administrator", "Administrator"},
	{discordgo.PermissionManageChannels, "ManageChannels", "Manage Channels"},
	{discordgo.PermissionManageServer, "ManageGuild", "Manage Server"},
	{discordgo.PermissionAddReactions, "AddReactions", "Add Reactions"},
	{discordgo.PermissionViewAuditLogs, "ViewAuditLog", "View Audit Logs"},
	{discordgo.PermissionViewChannel, "ViewChannel", "View Channel"},
	{discordgo.PermissionSendMessages, "SendMessages", "Send Messages"},
	{discordgo.PermissionSendTTSMessages, "SendTTSMessages", "Send TTS Messages"},
	{discordgo.PermissionManageMessages, "ManageMessages", "Manage Messages"},
	{discordgo.PermissionEmbedLinks, "EmbedLinks", "Embed Links"},
	{discordgo.PermissionAttachFiles, "AttachFiles", "Attach Files"},
	{discordgo.PermissionReadMessageHistory, "ReadMessageHistory", "Read Message History"},
	{discordgo.PermissionMentionEveryone, "MentionEveryone", "Mention Everyone"},
	{discordgo.PermissionUseExternalEmojis, "UseExternalEmojis", "Use External Emojis"},
	{discordgo.PermissionUseSlashCommands, "UseApplicationCommands", "Use Application Commands"},
	{discordgo.PermissionManageThreads, "ManageThreads", "Manage Threads"},
	{discordgo.PermissionCreatePublicThreads, "CreatePublicThreads", "Create Public Threads"},
	{discordgo.PermissionCreatePrivateThreads, "CreatePrivateThreads", "Create Private Threads"},
	{discordgo.PermissionSendMessagesInThreads, "SendMessagesInThreads", "Send Messages in Threads"},
	{discordgo.PermissionVoiceConnect, "Connect", "Connect to Voice Channel"},
	{discordgo.PermissionVoiceSpeak, "Speak", "Speak"},
	{discordgo.PermissionVoiceMuteMembers, "MuteMembers", "Mute Members"},
	{discordgo.PermissionVoiceDeafenMembers, "DeafenMembers", "Deafen Members"},
	{discordgo.PermissionVoiceMoveMembers, "MoveMembers", "Move Members"},
	{discordgo.PermissionChangeNickname, "ChangeNickname", "Change Nickname"},
	{discordgo.PermissionManageNicknames, "ManageNicknames", "Manage Nicknames"},
	{discordgo.PermissionManageRoles, "ManageRoles", "Manage Roles"},
	{discordgo.PermissionManageWebhooks, "ManageWebhooks", "Manage Webhooks"},
	{discordgo.PermissionModerateMembers, "ModerateMembers", "Moderate Members"},
}

var permissionsByKey = func() map[string]int64 {
	m := make(map[string]int64, len(permissions)*2)
	for _, p := range permissions {
		m[permissionKey(p.code)] = p.bit
		m[permissionKey(p.label)] = p.bit
	}
	return m
}()

// permissionKey folds "ManageMessages", "MANAGE_MESSAGES" and "Manage Messages"
// onto the same key.
func permissionKey(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// ParsePermissions resolves permission names into a bit set.
func ParsePermissions(names []string) (int64, error) {
	var bits int64
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		bit, ok := permissionsByKey[permissionKey(n)]
		if !ok {
			return 0, fmt.Errorf("unknown permission %q", n)
		}
		bits |= bit
	}
	return bits, nil
}

// HasPermissions reports whether have covers every bit of need.
// Administrator implies everything.
func HasPermissions(have, need int64) bool {
	if need == 0 {
		return true
	}
	if have&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return have&need == need
}

// MissingPermissions returns the bits of need that have lacks.
func MissingPermissions(have, need int64) int64 {
	if HasPermissions(have, need) {
		return 0
	}
	return need &^ have
}

// PermissionLabels returns human names for every bit set in bits.
func PermissionLabels(bits int64) []string {
	var out []string
	for _, p := range permissions {
		if bits&p.bit != 0 {
			out = append(out, p.label)
			bits &^= p.bit
		}
	}
	if bits != 0 {
		out = append(out, fmt.Sprintf("0x%x", bits))
	}
	return out
}
