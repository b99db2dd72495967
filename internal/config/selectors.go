package config

// Kozi post page selectors. Kept together because the site markup changes
// without notice; update here when expansion stops finding controls.
const (
	KoziDiscussionLoadMore = `button.kz-post-discussion--comments-loadmore`
	KoziCommentReadMore    = `.read-more-cta .read-more-span`
	KoziPostDescription    = `.kz-post-description`

	KoziHeader      = `.kz-header`
	KoziNavbar      = `.kz-navbar.ng-star-inserted`
	KoziMaintenance = `app-countdown-timer .maintenance`
)

// DefaultTasks expands discussion threads first, then truncated comments.
func DefaultTasks() []TaskConfig {
	return []TaskConfig{
		{Label: "discussion", Kind: KindDiscussion, Control: KoziDiscussionLoadMore, Container: KoziPostDescription},
		{Label: "comment", Kind: KindComment, Control: KoziCommentReadMore, Container: KoziPostDescription},
	}
}

// DefaultHide lists UI chrome hidden before expansion.
func DefaultHide() []string {
	return []string{KoziHeader, KoziNavbar, KoziMaintenance}
}
