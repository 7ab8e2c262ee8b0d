// Package gmail reads newsletter messages through the Gmail API.
//
// Client is a thin wrapper over the Users service: paginated message search,
// full message retrieval and label management. Mailbox builds on it to
// provide the sync's view of a mailbox, where "processed" is a Gmail label
// that is created on first use and applied to every handled message.
//
// Example usage:
//
//	ts, err := google.TokenSource(ctx, google.Config(id, secret, ""), refreshToken)
//	if err != nil {
//	    return err
//	}
//	mb, err := gmail.NewMailbox(ctx, google.HTTPClient(ctx, ts), gmail.MailboxOptions{
//	    Query: "from:substack.com",
//	    Label: "Newsletters/Processed",
//	})
//	if err != nil {
//	    return err
//	}
//	msgs, err := mb.ListUnprocessed(ctx)
package gmail
