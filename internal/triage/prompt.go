package triage

// prompt asks for a Hebrew-only JSON injury assessment of every person in the image
const prompt = `
אתה מודל ניתוח תמונה רפואית. נתח את התמונה ושלח תשובה בעברית בלבד במבנה JSON תקין לפי הסכמה:
{
  "סה\"כ_אנשים": <number>,
  "סה\"כ_פצועים": <number>,
  "אנשים": [
    {
      "אדם_מספר": <number>,
      "פצוע": true/false,
      "פציעות": [
        {
          "סוג": "דימום | כוויה | חתך | חבלה קהה | קטיעה/חסר גפה | שבר חשוד | חוסר הכרה/הכרה מעורפלת | אחר",
          "מיקום_בגוף": "ראש/צוואר/חזה/בטן/גב/יד ימין/יד שמאל/רגל ימין/רגל שמאל/פנים/אחר",
          "חומרה": "קל | בינוני | קשה",
          "ודאות_אחוז": <number 0-100>,
          "נימוק_קצר": "עד 20 מילים על מה רואים שמצדיק את האבחנה"
        }
      ]
    }
  ],
  "הערות_כלליות": "דגשים רלוונטיים (אם יש)"
}
החזר אך ורק JSON חוקי וללא טקסט נוסף.
`
