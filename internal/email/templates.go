package email

import "html/template"

var reminderTemplate = template.Must(template.New("reminder").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="text-align: center;">Bill Reminder</h1>
<p>Hi {{.Name}},</p>
<p>You have <strong>{{.Count}} upcoming bill{{if .Plural}}s{{end}}</strong> that need your attention:</p>
<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
<thead><tr><th align="left">Bill</th><th align="left">Amount</th><th align="left">Due Date</th><th align="left">Status</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Title}}</td><td>{{.Amount}}</td><td>{{.DueDate}}</td><td>{{.Urgency}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td><strong>Total</strong></td><td colspan="3"><strong>{{.Total}}</strong></td></tr></tfoot>
</table>
<p style="color: #6b7280; font-size: 14px;">Log in to Billfold to manage these payments.</p>
</div>`))

var resetTemplate = template.Must(template.New("reset").Parse(`<div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
<h1 style="text-align: center;">Password Reset</h1>
<p>We received a request to reset the password for your Billfold account.</p>
<p style="text-align: center; margin: 30px 0;"><a href="{{.Link}}">Reset Password</a></p>
<p style="color: #6b7280; font-size: 14px;">This link will expire in <strong>1 hour</strong>.</p>
<p style="color: #6b7280; font-size: 14px;">If you didn't request this password reset, please ignore this email.</p>
</div>`))
